// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/feed"
)

// snippetMark adapts the four like/star toggles into one handler shape.
// changed is false for idempotent repeats, which skip the feed event.
func snippetMark(st *store.Store, hub feed.Notify, eventType string,
	op func(ctx context.Context, snippetID, userID string) (bool, error)) gin.HandlerFunc {

	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		snippetID := c.Param("id")

		changed, err := op(c.Request.Context(), snippetID, info.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		if changed && eventType != "" {
			hub.Publish(feed.Event{
				Type:   eventType,
				Actor:  info.UserID,
				Target: snippetID,
			})
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}

// LikeSnippet marks the snippet liked by the caller.
func LikeSnippet(st *store.Store, hub feed.Notify) gin.HandlerFunc {
	return snippetMark(st, hub, feed.EventSnippetLiked, st.Like)
}

// UnlikeSnippet removes the caller's like. Absent like is a no-op.
func UnlikeSnippet(st *store.Store, hub feed.Notify) gin.HandlerFunc {
	return snippetMark(st, hub, "", st.Unlike)
}

// StarSnippet marks the snippet starred by the caller.
func StarSnippet(st *store.Store, hub feed.Notify) gin.HandlerFunc {
	return snippetMark(st, hub, feed.EventSnippetStarred, st.Star)
}

// UnstarSnippet removes the caller's star.
func UnstarSnippet(st *store.Store, hub feed.Notify) gin.HandlerFunc {
	return snippetMark(st, hub, "", st.Unstar)
}

// ListLikers returns the user IDs that liked a snippet.
func ListLikers(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := st.ListLikers(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_ids": users})
	}
}

// FollowUser makes the caller follow the target user.
func FollowUser(st *store.Store, hub feed.Notify) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		target := c.Param("id")

		changed, err := st.FollowUser(c.Request.Context(), info.UserID, target)
		if err != nil {
			writeError(c, err)
			return
		}
		if changed {
			hub.Publish(feed.Event{
				Type:   feed.EventUserFollowed,
				Actor:  info.UserID,
				Target: target,
			})
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}

// UnfollowUser removes the caller's follow of the target user.
func UnfollowUser(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		changed, err := st.UnfollowUser(c.Request.Context(), info.UserID, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}

// ListFollowers returns who follows the given user.
func ListFollowers(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := st.ListFollowers(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_ids": users})
	}
}

// ListFollowing returns who the given user follows.
func ListFollowing(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := st.ListFollowing(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_ids": users})
	}
}

// FollowChannel makes the caller follow a channel by slug.
func FollowChannel(st *store.Store) gin.HandlerFunc {
	return channelFollowOp(st, st.FollowChannel)
}

// UnfollowChannel removes the caller's channel follow.
func UnfollowChannel(st *store.Store) gin.HandlerFunc {
	return channelFollowOp(st, st.UnfollowChannel)
}

func channelFollowOp(st *store.Store,
	op func(ctx context.Context, channelID, userID string) (bool, error)) gin.HandlerFunc {

	return func(c *gin.Context) {
		ch, err := st.GetChannelBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		changed, err := op(c.Request.Context(), ch.ID, info.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}
