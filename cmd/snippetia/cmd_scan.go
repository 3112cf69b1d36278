// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/snippetia/snippetia/services/scanner"
)

// maxScanFileSize skips files too large to be a pasted snippet.
const maxScanFileSize = 1 << 20

func runScan(cmd *cobra.Command, args []string) error {
	sc := scanner.New()
	if ruleDir != "" {
		patterns, err := scanner.LoadRules(ruleDir)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
		if len(patterns) > 0 {
			sc.SetPatterns(patterns)
		}
	}

	var scanned, dirty int
	for _, root := range args {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			info, err := d.Info()
			if err != nil || info.Size() > maxScanFileSize {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			result, err := sc.Scan(cmd.Context(), string(content))
			if err != nil {
				return fmt.Errorf("scan %s: %w", path, err)
			}
			scanned++
			if len(result.Findings) == 0 {
				return nil
			}

			fmt.Printf("%s: %s\n", path, result.Verdict)
			for _, f := range result.Findings {
				fmt.Printf("  line %d: %s [%s] %s\n",
					f.Line, f.Description, f.Severity, f.Context)
			}
			if result.Verdict == scanner.VerdictReject ||
				(failOnFlag && result.Verdict == scanner.VerdictFlag) {
				dirty++
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("scanned %d files\n", scanned)
	if dirty > 0 {
		return fmt.Errorf("%d files contain secrets", dirty)
	}
	return nil
}
