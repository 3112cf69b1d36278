// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command snippetia runs the Snippetia code snippet platform.
//
// # Usage
//
//	# Build
//	go build -o snippetia ./cmd/snippetia
//
//	# Start the server with the default local configuration
//	./snippetia serve
//
//	# Start with a config file
//	./snippetia serve --config /etc/snippetia/config.yaml
//
//	# Scan local files for leaked secrets before sharing them
//	./snippetia scan ./src
//
//	# Snapshot the store
//	./snippetia backup --config /etc/snippetia/config.yaml
//
// Every setting in the config file can also be supplied through
// SNIPPETIA_* environment variables.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
