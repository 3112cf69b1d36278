// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk YAML schema for a pattern rule file.
type ruleFile struct {
	Patterns []*SecretPattern `yaml:"patterns"`
}

// LoadRules reads every *.yaml / *.yml file under dir and returns the
// combined pattern set. Patterns are validated eagerly so a broken
// regex fails the load instead of being silently skipped at scan time.
func LoadRules(dir string) ([]*SecretPattern, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rules directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var patterns []*SecretPattern
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read rule file %s: %w", name, err)
		}
		var rf ruleFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("parse rule file %s: %w", name, err)
		}
		for _, p := range rf.Patterns {
			if p.Type == "" || p.Pattern == "" {
				return nil, fmt.Errorf("rule file %s: pattern missing type or pattern", name)
			}
			if err := p.compile(); err != nil {
				return nil, fmt.Errorf("rule file %s pattern %s: %w", name, p.Type, err)
			}
			patterns = append(patterns, p)
		}
	}
	return patterns, nil
}

// Watch reloads the scanner's pattern set whenever a rule file under
// dir changes. Blocks until ctx is done. A failed reload keeps the
// previous set active.
func (s *Scanner) Watch(ctx context.Context, dir string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create rule watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch rules directory %s: %w", dir, err)
	}

	// Editors write rule files in bursts; debounce before reloading.
	const settle = 250 * time.Millisecond
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settle, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warn("rule watcher error", slog.String("error", err.Error()))
			}

		case <-reload:
			patterns, err := LoadRules(dir)
			if err != nil {
				if logger != nil {
					logger.Error("rule reload failed, keeping previous set",
						slog.String("error", err.Error()))
				}
				continue
			}
			s.SetPatterns(patterns)
			if logger != nil {
				logger.Info("scanner rules reloaded",
					slog.String("dir", dir),
					slog.Int("patterns", len(patterns)))
			}
		}
	}
}
