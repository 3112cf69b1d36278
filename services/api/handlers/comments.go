// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/feed"
	"github.com/snippetia/snippetia/services/scanner"
)

// CreateComment adds a comment to a snippet after scanning the body
// for secret leakage.
func CreateComment(st *store.Store, sc *scanner.Scanner, hub feed.Notify) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		snip, err := st.GetSnippet(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if !canViewSnippet(info, snip) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		result := scanContent(c, sc, req.Body)
		if result == nil {
			return
		}

		comment := &datatypes.Comment{
			ID:        uuid.NewString(),
			SnippetID: snip.ID,
			AuthorID:  info.UserID,
			Body:      req.Body,
		}
		if err := st.CreateComment(c.Request.Context(), comment); err != nil {
			writeError(c, err)
			return
		}

		// Comment targets are addressed as snippetID/commentID so a
		// resolver can act on the report without a second lookup.
		fileScanReport(c.Request.Context(), st, result, datatypes.TargetComment,
			comment.SnippetID+"/"+comment.ID)
		hub.Publish(feed.Event{
			Type:   feed.EventCommentAdded,
			Actor:  info.UserID,
			Target: snip.ID,
		})
		c.JSON(http.StatusCreated, comment)
	}
}

// ListComments pages a snippet's comments oldest-first.
func ListComments(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snip, err := st.GetSnippet(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !canViewSnippet(middleware.GetAuthInfo(c), snip) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		limit, _ := strconv.Atoi(c.Query("limit"))
		comments, next, err := st.ListComments(c.Request.Context(), snip.ID, c.Query("cursor"), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"comments": comments, "next_cursor": next})
	}
}

// DeleteComment removes a comment. Allowed for the comment author, the
// snippet owner, and moderators.
func DeleteComment(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snippetID := c.Param("id")
		commentID := c.Param("commentId")

		comment, err := st.GetComment(c.Request.Context(), snippetID, commentID)
		if err != nil {
			writeError(c, err)
			return
		}
		snip, err := st.GetSnippet(c.Request.Context(), snippetID)
		if err != nil {
			writeError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		allowed := info.UserID == comment.AuthorID ||
			info.UserID == snip.OwnerID ||
			info.IsModerator()
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}

		if err := st.DeleteComment(c.Request.Context(), snippetID, commentID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
