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
	"github.com/snippetia/snippetia/services/api/config"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	srv, err := api.New(cfg)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	return srv.Run()
}
