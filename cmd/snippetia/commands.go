// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snippetia/snippetia/services/api"
)

var (
	configPath string
	ruleDir    string
	failOnFlag bool

	rootCmd = &cobra.Command{
		Use:   "snippetia",
		Short: "A social platform for sharing and discussing code snippets",
		Long: `Snippetia hosts versioned code snippets with channels, paid
subscriptions, live activity feeds, and a security scanner that keeps
leaked credentials off the platform.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the Snippetia API server",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	scanCmd = &cobra.Command{
		Use:   "scan [path...]",
		Short: "Scan local files for leaked secrets using the platform scanner",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScan, // Defined in cmd_scan.go
	}

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the store to the configured backup destination",
		RunE:  runBackup, // Defined in cmd_backup.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(api.Version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the YAML config file (optional)")

	scanCmd.Flags().StringVar(&ruleDir, "rules", "",
		"directory with extra scanner rule files")
	scanCmd.Flags().BoolVar(&failOnFlag, "strict", false,
		"exit non-zero on flagged findings, not just rejected ones")

	rootCmd.AddCommand(serveCmd, scanCmd, backupCmd, versionCmd)
}
