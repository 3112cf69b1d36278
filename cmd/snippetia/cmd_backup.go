// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/snippetia/snippetia/services/api/config"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/backup"
)

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir is not configured, nothing to back up")
	}

	st, err := store.Open(store.Config{Path: cfg.DataDir, SyncWrites: true})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := backup.NewService(st, quiet)

	var location string
	if cfg.BackupBucket != "" {
		location, _, err = svc.SnapshotToGCS(cmd.Context(), cfg.BackupBucket, "", "")
	} else {
		location, _, err = svc.Snapshot(cmd.Context(), cfg.BackupDir)
	}
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	fmt.Println(location)
	return nil
}
