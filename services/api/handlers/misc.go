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

	"github.com/gin-gonic/gin"

	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/backup"
)

// HealthCheck reports liveness and store health.
func HealthCheck(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"store":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// BackupConfig tells the snapshot handler where snapshots go. Bucket
// wins over Dir when both are set.
type BackupConfig struct {
	Dir     string
	Bucket  string
	Prefix  string
	KeyPath string
}

// TriggerBackup snapshots the store to the configured destination.
// Admin only.
func TriggerBackup(svc *backup.Service, cfg BackupConfig, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			location string
			version  uint64
			err      error
		)
		if cfg.Bucket != "" {
			location, version, err = svc.SnapshotToGCS(ctx, cfg.Bucket, cfg.Prefix, cfg.KeyPath)
		} else {
			location, version, err = svc.Snapshot(ctx, cfg.Dir)
		}
		if err != nil {
			logger.Error("snapshot failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"location": location,
			"version":  version,
		})
	}
}
