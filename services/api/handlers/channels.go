// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snippetia/snippetia/pkg/validation"
	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/store"
)

// CreateChannel creates a channel owned by the caller. The slug is
// derived from the name and must be globally unique.
func CreateChannel(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		slug, err := validation.Slugify(req.Name)
		if err != nil {
			writeBindError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		ch := &datatypes.Channel{
			ID:          uuid.NewString(),
			OwnerID:     info.UserID,
			Name:        req.Name,
			Slug:        slug,
			Description: req.Description,
		}
		if err := st.CreateChannel(c.Request.Context(), ch); err != nil {
			writeError(c, err)
			return
		}

		slog.Info("channel created", "channel_id", ch.ID, "slug", slug, "owner_id", info.UserID)
		c.JSON(http.StatusCreated, ch)
	}
}

// GetChannel returns a channel by slug.
func GetChannel(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, err := st.GetChannelBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ch)
	}
}

// ListChannels pages channels, optionally filtered by owner.
func ListChannels(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		channels, next, err := st.ListChannels(c.Request.Context(),
			c.Query("owner"), c.Query("cursor"), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"channels": channels, "next_cursor": next})
	}
}

// UpdateChannel patches the channel description. Owner only.
func UpdateChannel(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		ch, err := st.GetChannelBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if ch.OwnerID != info.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can edit a channel"})
			return
		}

		updated, err := st.UpdateChannel(c.Request.Context(), ch.ID, func(rec *datatypes.Channel) error {
			if req.Description != nil {
				rec.Description = *req.Description
			}
			return nil
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteChannel removes a channel, detaching its snippets. Owner or
// admin.
func DeleteChannel(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, err := st.GetChannelBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if ch.OwnerID != info.UserID && !info.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}

		// Detach snippets before the channel index disappears. Each
		// detach drops the snippet from the channel index, so restart
		// from the top of the listing until it drains.
		for {
			snippets, _, err := st.ListSnippets(c.Request.Context(),
				store.SnippetFilter{ChannelID: ch.ID}, "", 100)
			if err != nil {
				writeError(c, err)
				return
			}
			if len(snippets) == 0 {
				break
			}
			for _, snip := range snippets {
				_, err := st.UpdateSnippetMeta(c.Request.Context(), snip.ID,
					func(s *datatypes.Snippet) error {
						s.ChannelID = ""
						return nil
					})
				if err != nil {
					writeError(c, err)
					return
				}
			}
		}

		if err := st.DeleteChannel(c.Request.Context(), ch.ID); err != nil {
			writeError(c, err)
			return
		}
		slog.Info("channel deleted", "channel_id", ch.ID, "by", info.UserID)
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
