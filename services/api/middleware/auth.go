// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the API service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization
// header, validates it against the session manager, and stores the
// resulting AuthInfo in the Gin context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	Authenticate
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► manager.Validate(ctx, token)
//	   │
//	   └─► Store AuthInfo in context
//	           │
//	           ▼
//	       Handler (retrieves via GetAuthInfo)
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snippetia/snippetia/services/api/auth"
)

// authInfoKey is the context key for storing AuthInfo.
// Using a dedicated key prevents collisions with other context values.
const authInfoKey = "snippetia_auth_info"

// SetAuthInfo stores the authenticated user info in the Gin context.
// Called by Authenticate after successful validation; exported so
// handler tests can seed an identity directly.
func SetAuthInfo(c *gin.Context, info *auth.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the authenticated user info from the Gin
// context. Returns nil if the request is not authenticated.
func GetAuthInfo(c *gin.Context) *auth.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*auth.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// Authenticate validates the bearer token on every request and aborts
// with 401 when the session is missing, expired, or revoked.
func Authenticate(manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}

		authInfo, err := manager.Validate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "unauthorized",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}

		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// OptionalAuthenticate resolves a bearer token when one is present but
// never aborts. Public read endpoints use it so signed-in callers see
// their private content while anonymous requests still go through.
func OptionalAuthenticate(manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		authInfo, err := manager.Validate(c.Request.Context(), token)
		if err != nil {
			// A bad token on a public route is treated as anonymous.
			c.Next()
			return
		}
		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated user carries at
// least one of the given roles. Must run after Authenticate.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := GetAuthInfo(c)
		if info == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		for _, want := range roles {
			for _, have := range info.Roles {
				if have == want {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "insufficient privileges",
		})
	}
}

// extractBearerToken parses the Authorization header expecting
// "Bearer <token>". Returns empty string if the header is missing or
// malformed. The scheme is case-insensitive per RFC 7235.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
