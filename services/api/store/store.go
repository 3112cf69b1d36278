// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists Snippetia domain records in BadgerDB.
//
// BadgerDB gives us embedded, low-latency storage with serializable
// transactions. Records are stored as JSON values under typed key
// prefixes (see keys.go); secondary indexes are plain keys whose value
// is the primary ID. Counter fields on parent records (likes, stars,
// followers) are updated in the same transaction as the index write, so
// counts and mark sets cannot drift.
//
// # Usage
//
//	st, err := store.Open(store.Config{Path: dataDir})
//	if err != nil { ... }
//	defer st.Close()
//
//	user, err := st.CreateUser(ctx, ...)
//
// Use store.Config{InMemory: true} in tests.
//
// # Thread Safety
//
// Store is safe for concurrent use; Badger provides SSI transactions
// and conflicting commits return badger.ErrConflict, which the write
// helpers retry a bounded number of times.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for opening a Store.
type Config struct {
	// Path is the directory for the database files. Required unless
	// InMemory is set. Created with 0750 if missing.
	Path string

	// InMemory opens the database without disk persistence. For tests.
	InMemory bool

	// SyncWrites forces fsync on every commit. Default true for
	// persistent stores; ignored in memory mode.
	SyncWrites bool

	// Logger receives Badger's internal log output. Nil disables it.
	Logger *slog.Logger

	// GCInterval is how often value log garbage collection runs.
	// Default 5 minutes; 0 disables GC (and always in memory mode).
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio before a value log
	// file is rewritten. Default 0.5.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults for a persistent store.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// Store is the persistence layer for all Snippetia domain records.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	gcStop chan struct{}
	gcDone chan struct{}
}

// Open opens (and if necessary creates) the database.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db, logger: cfg.Logger}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio > 1 {
			ratio = 0.5
		}
		s.gcStop = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, ratio)
	}

	return s, nil
}

// OpenInMemory opens a throwaway in-memory store for tests.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		<-s.gcDone
		s.gcStop = nil
	}
	return s.db.Close()
}

// Ping verifies the database is usable. Used by the health endpoint.
func (s *Store) Ping() error {
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// Backup streams a full backup of the database. since is the version to
// resume from; 0 means everything. Returns the new version watermark.
func (s *Store) Backup(w interface{ Write([]byte) (int, error) }, since uint64) (uint64, error) {
	return s.db.Backup(w, since)
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				// ErrNoRewrite means nothing to collect.
				if s.logger != nil {
					s.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
				}
			}
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// maxTxnRetries bounds retries of transactions that fail with
// badger.ErrConflict under SSI.
const maxTxnRetries = 5

// Pagination bounds shared by the list operations.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// update runs fn in a read-write transaction, retrying on SSI conflict.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}
		err := s.db.Update(fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction conflict persisted after %d attempts", maxTxnRetries)
}

// view runs fn in a read-only transaction.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return s.db.View(fn)
}

// setJSON marshals v and writes it at key within txn.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// getJSON reads key within txn and unmarshals into v. A missing key
// maps to ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// unmarshalInto unmarshals a raw value inside iterator callbacks.
func unmarshalInto(val []byte, v any) error {
	return json.Unmarshal(val, v)
}

// exists reports whether key is present within txn.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// getString reads key and returns its raw value as a string.
func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// deletePrefix removes every key under prefix within txn.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// countPrefix counts keys under prefix within txn.
func countPrefix(txn *badger.Txn, prefix []byte) (int64, error) {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	var n int64
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n, nil
}
