// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/store"
)

// CreateShowcase creates a portfolio entry. Referenced snippets must
// exist and belong to the caller.
func CreateShowcase(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ShowcaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		sc := &datatypes.Showcase{
			ID:         uuid.NewString(),
			OwnerID:    info.UserID,
			Title:      req.Title,
			Summary:    req.Summary,
			RepoURL:    req.RepoURL,
			SnippetIDs: req.SnippetIDs,
		}
		if err := st.CreateShowcase(c.Request.Context(), sc); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sc)
	}
}

// GetShowcase returns one showcase.
func GetShowcase(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, err := st.GetShowcase(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sc)
	}
}

// UpdateShowcase replaces a showcase's fields. Owner only.
func UpdateShowcase(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ShowcaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		sc, err := st.GetShowcase(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if sc.OwnerID != info.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can edit a showcase"})
			return
		}

		updated, err := st.UpdateShowcase(c.Request.Context(), sc.ID, func(rec *datatypes.Showcase) error {
			rec.Title = req.Title
			rec.Summary = req.Summary
			rec.RepoURL = req.RepoURL
			rec.SnippetIDs = req.SnippetIDs
			return nil
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteShowcase removes a showcase. Owner or moderator.
func DeleteShowcase(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, err := st.GetShowcase(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if !canOwnOrModerate(info, sc.OwnerID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}

		if err := st.DeleteShowcase(c.Request.Context(), sc.ID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

// ListUserShowcases returns a user's showcases.
func ListUserShowcases(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		showcases, err := st.ListUserShowcases(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"showcases": showcases})
	}
}
