// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package backup snapshots the store to local tarballs or a GCS bucket.
package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Source is the backup surface of the store.
type Source interface {
	Backup(w interface{ Write([]byte) (int, error) }, since uint64) (uint64, error)
}

// entryName is the single file inside every snapshot tarball.
const entryName = "badger.backup"

// Service writes store snapshots.
type Service struct {
	source Source
	logger *slog.Logger

	now func() time.Time
}

// NewService wires a backup service over the store.
func NewService(source Source, logger *slog.Logger) *Service {
	return &Service{
		source: source,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot writes a full backup to destDir as a timestamped tarball
// and returns the file path and the database version watermark.
func (s *Service) Snapshot(ctx context.Context, destDir string) (string, uint64, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create backup directory %s: %w", destDir, err)
	}

	name := fmt.Sprintf("snippetia-%s.tar.gz", s.now().Format("20060102T150405Z"))
	path := filepath.Join(destDir, name)

	tmp, err := os.CreateTemp(destDir, ".snapshot-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	version, err := s.write(ctx, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("failed to finalize backup %s: %w", path, err)
	}

	if s.logger != nil {
		s.logger.Info("backup written",
			slog.String("path", path),
			slog.Uint64("version", version))
	}
	return path, version, nil
}

// SnapshotToGCS streams a full backup to the bucket. keyPath is an
// optional service account key file; empty uses application default
// credentials. Returns the object name and version watermark.
func (s *Service) SnapshotToGCS(ctx context.Context, bucket, prefix, keyPath string) (string, uint64, error) {
	var opts []option.ClientOption
	if keyPath != "" {
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			return "", 0, fmt.Errorf("service account key not found at %s", keyPath)
		}
		opts = append(opts, option.WithCredentialsFile(keyPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create GCS client: %w", err)
	}
	defer client.Close()

	object := fmt.Sprintf("snippetia-%s.tar.gz", s.now().Format("20060102T150405Z"))
	if prefix != "" {
		object = filepath.Join(prefix, object)
	}

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/gzip"
	w.CacheControl = "no-cache, no-store, must-revalidate"

	version, err := s.write(ctx, w)
	if err != nil {
		_ = w.Close()
		return "", 0, err
	}
	if err := w.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}

	if s.logger != nil {
		s.logger.Info("backup uploaded",
			slog.String("bucket", bucket),
			slog.String("object", object),
			slog.Uint64("version", version))
	}
	return object, version, nil
}

// write streams the badger backup into a gzipped tarball on w. The
// badger stream length is unknown up front, so it is buffered to size
// the tar header.
func (s *Service) write(ctx context.Context, w io.Writer) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	version, err := s.source.Backup(&buf, 0)
	if err != nil {
		return 0, fmt.Errorf("store backup failed: %w", err)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{
		Name:    entryName,
		Mode:    0o600,
		Size:    int64(buf.Len()),
		ModTime: s.now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return 0, fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := io.Copy(tw, &buf); err != nil {
		return 0, fmt.Errorf("failed to write backup entry: %w", err)
	}
	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("failed to close tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("failed to close gzip stream: %w", err)
	}
	return version, nil
}
