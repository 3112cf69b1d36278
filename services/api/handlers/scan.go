// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/observability"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/scanner"
)

// scanContent screens a write through the security scanner. On reject
// it writes a 422 with the findings and returns nil; the caller must
// stop. Otherwise the result is returned for post-write reporting.
func scanContent(c *gin.Context, sc *scanner.Scanner, content string) *scanner.Result {
	result, err := sc.Scan(c.Request.Context(), content)
	if err != nil {
		writeError(c, err)
		return nil
	}

	severities := make([]string, 0, len(result.Findings))
	for _, f := range result.Findings {
		severities = append(severities, string(f.Severity))
	}
	observability.ObserveScan(string(result.Verdict), severities)

	if result.Verdict == scanner.VerdictReject {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "content rejected by security scan",
			"findings": result.Findings,
		})
		return nil
	}
	return result
}

// fileScanReport creates the automatic moderation report for a flagged
// write. Failures are logged, never surfaced; the write itself already
// succeeded.
func fileScanReport(ctx context.Context, st *store.Store, result *scanner.Result,
	targetType, targetID string) {

	if result.Verdict != scanner.VerdictFlag {
		return
	}

	reason := fmt.Sprintf("security scan flagged content (max severity %s, %d findings)",
		result.MaxSeverity, len(result.Findings))
	report := &datatypes.Report{
		ID:         uuid.NewString(),
		ReporterID: datatypes.SystemReporter,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		Status:     datatypes.ReportOpen,
		CreatedAt:  time.Now().UTC(),
	}
	if err := st.CreateReport(ctx, report); err != nil {
		slog.Error("auto report failed",
			"target_type", targetType,
			"target_id", targetID,
			"error", err)
		return
	}
	if n, err := st.CountOpenReports(ctx); err == nil {
		observability.SetOpenReports(n)
	}
	slog.Warn("content flagged by security scan",
		"target_type", targetType,
		"target_id", targetID,
		"max_severity", result.MaxSeverity)
}
