// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/observability"
	"github.com/snippetia/snippetia/services/api/store"
)

// CreateReport opens a moderation case. Any authenticated user can
// report; the target must exist at filing time.
func CreateReport(st *store.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		ctx := c.Request.Context()
		if err := verifyReportTarget(ctx, st, req.TargetType, req.TargetID); err != nil {
			writeError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		report := &datatypes.Report{
			ID:         uuid.NewString(),
			ReporterID: info.UserID,
			TargetType: req.TargetType,
			TargetID:   req.TargetID,
			Reason:     req.Reason,
			Status:     datatypes.ReportOpen,
		}
		if err := st.CreateReport(ctx, report); err != nil {
			writeError(c, err)
			return
		}
		refreshOpenReports(ctx, st, logger)
		c.JSON(http.StatusCreated, report)
	}
}

// ListOpenReports pages the open moderation queue, newest first.
func ListOpenReports(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		reports, next, err := st.ListOpenReports(c.Request.Context(), c.Query("cursor"), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": reports, "next_cursor": next})
	}
}

// GetReport returns a single report.
func GetReport(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := st.GetReport(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// ResolveReport closes an open report with an action. "removed" deletes
// the reported content, "user_suspended" locks the account out, and
// "dismissed" records the decision and nothing else. Resolving twice
// maps to 409.
func ResolveReport(st *store.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ResolveReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		ctx := c.Request.Context()
		info := middleware.GetAuthInfo(c)
		resolved, err := st.ResolveReport(ctx, c.Param("id"), func(r *datatypes.Report) error {
			r.Status = datatypes.ReportResolved
			r.Action = req.Action
			r.ResolvedBy = info.UserID
			r.ResolvedAt = nowUTC()
			return nil
		})
		if err != nil {
			writeError(c, err)
			return
		}

		if err := enforceResolution(ctx, st, resolved, req.Action); err != nil {
			// The decision is recorded either way. Enforcement
			// failures need an operator.
			logger.Error("report resolution enforcement failed",
				"report_id", resolved.ID,
				"action", req.Action,
				"target_type", resolved.TargetType,
				"target_id", resolved.TargetID,
				"error", err)
		}

		refreshOpenReports(ctx, st, logger)
		c.JSON(http.StatusOK, resolved)
	}
}

// verifyReportTarget checks the reported entity exists. Comment targets
// are addressed as snippetID/commentID.
func verifyReportTarget(ctx context.Context, st *store.Store, targetType, targetID string) error {
	switch targetType {
	case datatypes.TargetSnippet:
		_, err := st.GetSnippet(ctx, targetID)
		return err
	case datatypes.TargetComment:
		snippetID, commentID, ok := splitCommentTarget(targetID)
		if !ok {
			return store.ErrNotFound
		}
		_, err := st.GetComment(ctx, snippetID, commentID)
		return err
	case datatypes.TargetUser:
		_, err := st.GetUser(ctx, targetID)
		return err
	case datatypes.TargetChannel:
		_, err := st.GetChannel(ctx, targetID)
		return err
	}
	return store.ErrNotFound
}

// enforceResolution carries the resolved action out against the target.
func enforceResolution(ctx context.Context, st *store.Store, r *datatypes.Report, action string) error {
	switch action {
	case datatypes.ActionRemoved:
		switch r.TargetType {
		case datatypes.TargetSnippet:
			return st.DeleteSnippet(ctx, r.TargetID)
		case datatypes.TargetComment:
			snippetID, commentID, ok := splitCommentTarget(r.TargetID)
			if !ok {
				return store.ErrNotFound
			}
			return st.DeleteComment(ctx, snippetID, commentID)
		case datatypes.TargetChannel:
			return st.DeleteChannel(ctx, r.TargetID)
		}
	case datatypes.ActionUserSuspended:
		_, err := st.UpdateUser(ctx, r.TargetID, func(u *datatypes.User) error {
			u.Suspended = true
			return nil
		})
		return err
	}
	return nil
}

func splitCommentTarget(targetID string) (snippetID, commentID string, ok bool) {
	snippetID, commentID, ok = strings.Cut(targetID, "/")
	return snippetID, commentID, ok && snippetID != "" && commentID != ""
}

// refreshOpenReports pushes the open-queue depth to the metrics gauge.
func refreshOpenReports(ctx context.Context, st *store.Store, logger *slog.Logger) {
	n, err := st.CountOpenReports(ctx)
	if err != nil {
		logger.Warn("count open reports", "error", err)
		return
	}
	observability.SetOpenReports(n)
}
