// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"
)

// Report target types.
const (
	TargetSnippet = "snippet"
	TargetComment = "comment"
	TargetUser    = "user"
	TargetChannel = "channel"
)

// Report status and resolution actions.
const (
	ReportOpen     = "open"
	ReportResolved = "resolved"

	ActionDismissed     = "dismissed"
	ActionRemoved       = "removed"
	ActionUserSuspended = "user_suspended"
)

// SystemReporter is the ReporterID used by automatic scanner reports.
const SystemReporter = "system"

// Report is a moderation case against a piece of content or an account.
// ReporterID is "system" for reports filed automatically by the security
// scanner.
type Report struct {
	ID         string    `json:"id"`
	ReporterID string    `json:"reporter_id"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	Action     string    `json:"action,omitempty"`
	ResolvedBy string    `json:"resolved_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// CreateReportRequest is the body of POST /v1/reports.
type CreateReportRequest struct {
	TargetType string `json:"target_type" binding:"required,oneof=snippet comment user channel"`
	TargetID   string `json:"target_id" binding:"required"`
	Reason     string `json:"reason" binding:"required,min=3,max=2000"`
}

// ResolveReportRequest is the body of POST /v1/reports/:id/resolve.
type ResolveReportRequest struct {
	Action string `json:"action" binding:"required,oneof=dismissed removed user_suspended"`
	Note   string `json:"note" binding:"omitempty,max=2000"`
}
