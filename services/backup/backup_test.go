// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/store"
)

func TestSnapshotWritesTarball(t *testing.T) {
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	_, err = st.CreateUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)

	svc := NewService(st, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	}

	dir := t.TempDir()
	path, version, err := svc.Snapshot(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "snippetia-20260801T120000Z.tar.gz"), path)
	require.NotZero(t, version)

	// The tarball holds a single non-empty badger stream.
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	hdr, err := tr.Next()
	require.NoError(t, err)
	require.Equal(t, "badger.backup", hdr.Name)
	require.Positive(t, hdr.Size)

	payload, err := io.ReadAll(tr)
	require.NoError(t, err)
	require.Len(t, payload, int(hdr.Size))

	_, err = tr.Next()
	require.ErrorIs(t, err, io.EOF)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSnapshotCreatesDestDir(t *testing.T) {
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := NewService(st, nil)
	dir := filepath.Join(t.TempDir(), "nested", "backups")
	path, _, err := svc.Snapshot(context.Background(), dir)
	require.NoError(t, err)
	require.FileExists(t, path)
}
