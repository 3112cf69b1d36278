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

	"github.com/snippetia/snippetia/pkg/diff"
	"github.com/snippetia/snippetia/pkg/validation"
	"github.com/snippetia/snippetia/services/api/auth"
	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/feed"
	"github.com/snippetia/snippetia/services/scanner"
	"github.com/snippetia/snippetia/services/snippetlang"
)

// canViewSnippet reports whether the caller may read the snippet.
// Public and unlisted snippets are readable by anyone with the link;
// private ones only by the owner and moderators.
func canViewSnippet(info *auth.AuthInfo, snip *datatypes.Snippet) bool {
	if snip.Visibility != datatypes.VisibilityPrivate {
		return true
	}
	if info == nil {
		return false
	}
	return info.UserID == snip.OwnerID || info.IsModerator()
}

// canPublishToChannel reports whether the user may publish into the
// channel: the owner or a user with a live paid subscription.
func canPublishToChannel(c *gin.Context, st *store.Store, channelID, userID string) (bool, error) {
	ch, err := st.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		return false, err
	}
	if ch.OwnerID == userID {
		return true, nil
	}
	sub, err := st.GetUserChannelSubscription(c.Request.Context(), channelID, userID)
	if err != nil {
		return false, nil
	}
	return sub.Active(nowUTC()), nil
}

// CreateSnippet validates, scans, and stores a new snippet with its
// first version.
func CreateSnippet(st *store.Store, sc *scanner.Scanner, hub feed.Notify) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateSnippetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		if len(req.Content) > datatypes.MaxSnippetContentBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "snippet content exceeds size limit",
			})
			return
		}

		language, err := validation.SanitizeLanguage(req.Language)
		if err != nil {
			writeBindError(c, err)
			return
		}
		slug, err := validation.Slugify(req.Title)
		if err != nil {
			writeBindError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		if req.ChannelID != "" {
			ok, err := canPublishToChannel(c, st, req.ChannelID, info.UserID)
			if err != nil {
				writeError(c, err)
				return
			}
			if !ok {
				c.JSON(http.StatusForbidden, gin.H{
					"error": "not a member of this channel",
				})
				return
			}
		}

		result := scanContent(c, sc, req.Content)
		if result == nil {
			return
		}

		visibility := req.Visibility
		if visibility == "" {
			visibility = datatypes.VisibilityPublic
		}

		snip := &datatypes.Snippet{
			ID:         uuid.NewString(),
			OwnerID:    info.UserID,
			ChannelID:  req.ChannelID,
			Title:      req.Title,
			Slug:       slug,
			Language:   language,
			Visibility: visibility,
		}
		snip, err = st.CreateSnippet(c.Request.Context(), snip, req.Content, req.Note)
		if err != nil {
			writeError(c, err)
			return
		}

		fileScanReport(c.Request.Context(), st, result, datatypes.TargetSnippet, snip.ID)
		if visibility == datatypes.VisibilityPublic {
			hub.Publish(feed.Event{
				Type:   feed.EventSnippetCreated,
				Actor:  info.UserID,
				Target: snip.ID,
			})
		}

		stats := snippetlang.Analyze(c.Request.Context(), language, req.Content)
		ver, err := st.GetVersion(c.Request.Context(), snip.ID, snip.CurrentVersion)
		if err != nil {
			writeError(c, err)
			return
		}

		slog.Info("snippet created",
			"snippet_id", snip.ID, "owner_id", info.UserID, "language", language)
		c.JSON(http.StatusCreated, datatypes.SnippetResponse{
			Snippet: *snip,
			Version: *ver,
			Stats:   &stats,
		})
	}
}

// GetSnippet returns a snippet head plus the requested version
// (latest when ?version is absent).
func GetSnippet(st *store.Store) gin.HandlerFunc {
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

		version := snip.CurrentVersion
		if v := c.Query("version"); v != "" {
			version, err = strconv.Atoi(v)
			if err != nil || version < 1 {
				writeBindError(c, errInvalidVersion)
				return
			}
		}

		ver, err := st.GetVersion(c.Request.Context(), snip.ID, version)
		if err != nil {
			writeError(c, err)
			return
		}

		stats := snippetlang.Analyze(c.Request.Context(), snip.Language, ver.Content)
		c.JSON(http.StatusOK, datatypes.SnippetResponse{
			Snippet: *snip,
			Version: *ver,
			Stats:   &stats,
		})
	}
}

// GetRawContent serves the snippet body as plain text.
func GetRawContent(st *store.Store) gin.HandlerFunc {
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

		ver, err := st.GetVersion(c.Request.Context(), snip.ID, snip.CurrentVersion)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(ver.Content))
	}
}

// AddVersion appends a new revision after scanning it. Identical
// content returns the current version unchanged.
func AddVersion(st *store.Store, sc *scanner.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateSnippetContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		if len(req.Content) > datatypes.MaxSnippetContentBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "snippet content exceeds size limit",
			})
			return
		}

		snip, err := st.GetSnippet(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if snip.OwnerID != info.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can edit a snippet"})
			return
		}

		result := scanContent(c, sc, req.Content)
		if result == nil {
			return
		}

		ver, err := st.AddVersion(c.Request.Context(), snip.ID, req.Content, req.Note)
		if err != nil {
			writeError(c, err)
			return
		}
		fileScanReport(c.Request.Context(), st, result, datatypes.TargetSnippet, snip.ID)

		c.JSON(http.StatusCreated, ver)
	}
}

// UpdateSnippetMeta patches title, visibility, or channel.
func UpdateSnippetMeta(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateSnippetMetaRequest
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
		if snip.OwnerID != info.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can edit a snippet"})
			return
		}

		if req.ChannelID != nil && *req.ChannelID != "" {
			ok, err := canPublishToChannel(c, st, *req.ChannelID, info.UserID)
			if err != nil {
				writeError(c, err)
				return
			}
			if !ok {
				c.JSON(http.StatusForbidden, gin.H{
					"error": "not a member of this channel",
				})
				return
			}
		}

		updated, err := st.UpdateSnippetMeta(c.Request.Context(), snip.ID, func(s *datatypes.Snippet) error {
			if req.Title != nil {
				s.Title = *req.Title
				slug, err := validation.Slugify(*req.Title)
				if err != nil {
					return err
				}
				s.Slug = slug
			}
			if req.Visibility != nil {
				s.Visibility = *req.Visibility
			}
			if req.ChannelID != nil {
				s.ChannelID = *req.ChannelID
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

// ListVersions returns all revisions, oldest first, content included.
func ListVersions(st *store.Store) gin.HandlerFunc {
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

		versions, err := st.ListVersions(c.Request.Context(), snip.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"versions": versions})
	}
}

// DiffVersions renders the unified and structural diff between two
// revisions: GET /v1/snippets/:id/diff?from=1&to=3.
func DiffVersions(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, err1 := strconv.Atoi(c.Query("from"))
		to, err2 := strconv.Atoi(c.Query("to"))
		if err1 != nil || err2 != nil || from < 1 || to < 1 {
			writeBindError(c, errInvalidVersion)
			return
		}

		snip, err := st.GetSnippet(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !canViewSnippet(middleware.GetAuthInfo(c), snip) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		fromVer, err := st.GetVersion(c.Request.Context(), snip.ID, from)
		if err != nil {
			writeError(c, err)
			return
		}
		toVer, err := st.GetVersion(c.Request.Context(), snip.ID, to)
		if err != nil {
			writeError(c, err)
			return
		}

		fromLabel := snip.Slug + "@v" + strconv.Itoa(from)
		toLabel := snip.Slug + "@v" + strconv.Itoa(to)
		unified := diff.Unified(fromVer.Content, toVer.Content, fromLabel, toLabel)

		hunks, err := diff.Hunks(fromVer.Content, toVer.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]datatypes.DiffHunk, 0, len(hunks))
		for _, h := range hunks {
			out = append(out, datatypes.DiffHunk{
				OrigStartLine: h.OldStart,
				OrigLines:     h.OldLines,
				NewStartLine:  h.NewStart,
				NewLines:      h.NewLines,
				Body:          joinLines(h.Body),
			})
		}

		c.JSON(http.StatusOK, datatypes.VersionDiffResponse{
			SnippetID:   snip.ID,
			FromVersion: from,
			ToVersion:   to,
			Unified:     unified,
			Hunks:       out,
		})
	}
}

// ListSnippets pages public snippets filtered by owner, channel, or
// language.
func ListSnippets(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.SnippetFilter{
			OwnerID:   c.Query("owner"),
			ChannelID: c.Query("channel"),
			Language:  c.Query("language"),
		}
		limit, _ := strconv.Atoi(c.Query("limit"))

		snippets, next, err := st.ListSnippets(c.Request.Context(), filter, c.Query("cursor"), limit)
		if err != nil {
			writeError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		visible := make([]*datatypes.Snippet, 0, len(snippets))
		for _, s := range snippets {
			if s.Visibility == datatypes.VisibilityPublic || canOwnOrModerate(info, s.OwnerID) {
				visible = append(visible, s)
			}
		}
		c.JSON(http.StatusOK, gin.H{"snippets": visible, "next_cursor": next})
	}
}

// DeleteSnippet removes a snippet with its versions, comments, and
// marks. Owner or moderator.
func DeleteSnippet(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snip, err := st.GetSnippet(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if !canOwnOrModerate(info, snip.OwnerID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}

		if err := st.DeleteSnippet(c.Request.Context(), snip.ID); err != nil {
			writeError(c, err)
			return
		}
		slog.Info("snippet deleted", "snippet_id", snip.ID, "by", info.UserID)
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
