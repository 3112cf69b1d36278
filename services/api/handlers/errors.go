// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP handlers for the Snippetia API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/monetize"
)

// writeError maps store and monetize sentinels to HTTP statuses.
// Unknown errors become 500 with a generic body; the detail is logged,
// not leaked.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrCapacity):
		c.JSON(http.StatusConflict, gin.H{"error": "event is at capacity"})
	case errors.Is(err, monetize.ErrPaymentDeclined):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment declined"})
	case errors.Is(err, monetize.ErrGatewayUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway unavailable"})
	default:
		args := []any{"path", c.FullPath(), "error", err}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			args = append(args, "trace_id", sc.TraceID().String())
		}
		slog.Error("request failed", args...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// writeBindError reports a request validation failure.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
