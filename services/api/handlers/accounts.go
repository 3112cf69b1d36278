// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snippetia/snippetia/pkg/validation"
	"github.com/snippetia/snippetia/services/api/auth"
	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/store"
)

// Register creates an account and logs it in.
func Register(st *store.Store, manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		username, err := validation.SanitizeUsername(req.Username)
		if err != nil {
			writeBindError(c, err)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(c, err)
			return
		}

		user, err := st.CreateUser(c.Request.Context(), username,
			strings.ToLower(strings.TrimSpace(req.Email)), hash)
		if err != nil {
			writeError(c, err)
			return
		}

		token, expires, err := manager.Issue(c.Request.Context(), user.ID)
		if err != nil {
			writeError(c, err)
			return
		}

		slog.Info("account registered", "user_id", user.ID, "username", user.Username)
		c.JSON(http.StatusCreated, datatypes.LoginResponse{
			Token:     token,
			UserID:    user.ID,
			ExpiresAt: expires,
		})
	}
}

// Login verifies credentials and issues a session token. Wrong
// username and wrong password return the same 401 body.
func Login(st *store.Store, manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		user, err := st.GetUserByUsername(c.Request.Context(),
			strings.ToLower(strings.TrimSpace(req.Username)))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
		if err != nil || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if user.Suspended {
			c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
			return
		}

		token, expires, err := manager.Issue(c.Request.Context(), user.ID)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, datatypes.LoginResponse{
			Token:     token,
			UserID:    user.ID,
			ExpiresAt: expires,
		})
	}
}

// Logout revokes the presented session token.
func Logout(manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing bearer token"})
			return
		}
		if err := manager.Revoke(c.Request.Context(), strings.TrimSpace(parts[1])); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "logged out"})
	}
}

// GetMe returns the caller's own profile, email included.
func GetMe(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		user, err := st.GetUser(c.Request.Context(), info.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, user.PublicProfile(true))
	}
}

// UpdateProfile patches the caller's display name and bio.
func UpdateProfile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		user, err := st.UpdateUser(c.Request.Context(), info.UserID, func(u *datatypes.User) error {
			if req.DisplayName != nil {
				u.DisplayName = *req.DisplayName
			}
			if req.Bio != nil {
				u.Bio = *req.Bio
			}
			return nil
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, user.PublicProfile(true))
	}
}

// GetProfile returns a public profile. The path segment is tried as a
// user ID first and as a username second, so both addressing styles
// work. Email is visible only to the owner and admins.
func GetProfile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := c.Param("id")
		user, err := st.GetUser(c.Request.Context(), ref)
		if errors.Is(err, store.ErrNotFound) {
			user, err = st.GetUserByUsername(c.Request.Context(), ref)
		}
		if err != nil {
			writeError(c, err)
			return
		}

		includeEmail := false
		if info := middleware.GetAuthInfo(c); info != nil {
			includeEmail = info.UserID == user.ID || info.IsAdmin()
		}
		c.JSON(http.StatusOK, user.PublicProfile(includeEmail))
	}
}

// ListUsers pages through all accounts. Admin only.
func ListUsers(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		users, next, err := st.ListUsers(c.Request.Context(), c.Query("cursor"), limit)
		if err != nil {
			writeError(c, err)
			return
		}

		profiles := make([]datatypes.Profile, 0, len(users))
		for _, u := range users {
			profiles = append(profiles, u.PublicProfile(true))
		}
		c.JSON(http.StatusOK, gin.H{"users": profiles, "next_cursor": next})
	}
}
