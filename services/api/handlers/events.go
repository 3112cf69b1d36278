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
	"github.com/snippetia/snippetia/services/feed"
)

// CreateEvent schedules an event in a channel. The host must own the
// channel or hold a live subscription.
func CreateEvent(st *store.Store, hub feed.Notify) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateEventRequest
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
		ok, err := canPublishToChannel(c, st, ch.ID, info.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this channel"})
			return
		}

		ev := &datatypes.Event{
			ID:          uuid.NewString(),
			ChannelID:   ch.ID,
			HostID:      info.UserID,
			Title:       req.Title,
			Description: req.Description,
			StartsAt:    req.StartsAt,
			EndsAt:      req.EndsAt,
			Capacity:    req.Capacity,
		}
		if err := st.CreateEvent(c.Request.Context(), ev); err != nil {
			writeError(c, err)
			return
		}

		hub.Publish(feed.Event{
			Type:   feed.EventEventScheduled,
			Actor:  info.UserID,
			Target: ev.ID,
		})
		c.JSON(http.StatusCreated, ev)
	}
}

// ListChannelEvents returns a channel's events ordered by start time.
// ?upcoming=true drops finished events.
func ListChannelEvents(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, err := st.GetChannelBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, err)
			return
		}

		upcoming := c.Query("upcoming") == "true"
		events, err := st.ListChannelEvents(c.Request.Context(), ch.ID, upcoming, nowUTC())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

// RegisterForEvent claims a seat. A full event returns 409.
func RegisterForEvent(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		changed, err := st.RegisterForEvent(c.Request.Context(), c.Param("id"), info.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}

// UnregisterFromEvent frees the caller's seat. Absent registration is
// a no-op.
func UnregisterFromEvent(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		changed, err := st.UnregisterFromEvent(c.Request.Context(), c.Param("id"), info.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}

// CancelEvent deletes an event with its registrations. Host or admin.
func CancelEvent(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ev, err := st.GetEvent(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if ev.HostID != info.UserID && !info.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}

		if err := st.DeleteEvent(c.Request.Context(), ev.ID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "canceled"})
	}
}
