// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// CreateReport persists a moderation report and adds it to the open
// queue index, newest first.
func (s *Store) CreateReport(ctx context.Context, r *datatypes.Report) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(timeIndexKey(pfxReportOpen, r.CreatedAt, r.ID), []byte(r.ID)); err != nil {
			return err
		}
		return setJSON(txn, reportKey(r.ID), r)
	})
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetReport looks a report up by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*datatypes.Report, error) {
	var r datatypes.Report
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, reportKey(id), &r)
	})
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return &r, nil
}

// ResolveReport applies fn to an open report and drops it from the open
// queue. Resolving an already-resolved report maps to ErrConflict.
func (s *Store) ResolveReport(ctx context.Context, id string, fn func(r *datatypes.Report) error) (*datatypes.Report, error) {
	var resolved datatypes.Report
	err := s.update(ctx, func(txn *badger.Txn) error {
		var r datatypes.Report
		if err := getJSON(txn, reportKey(id), &r); err != nil {
			return err
		}
		if r.Status != datatypes.ReportOpen {
			return fmt.Errorf("report %s already resolved: %w", id, ErrConflict)
		}
		if err := fn(&r); err != nil {
			return err
		}
		if err := txn.Delete(timeIndexKey(pfxReportOpen, r.CreatedAt, r.ID)); err != nil {
			return err
		}
		resolved = r
		return setJSON(txn, reportKey(id), &r)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve report %s: %w", id, err)
	}
	return &resolved, nil
}

// ListOpenReports pages the open queue newest first. The cursor is the
// open-index key suffix of the last report from the previous page.
func (s *Store) ListOpenReports(ctx context.Context, cursor string, limit int) ([]*datatypes.Report, string, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	var (
		reports []*datatypes.Report
		next    string
	)
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(pfxReportOpen),
			PrefetchValues: false,
		})

		var ids []string
		start := []byte(pfxReportOpen + cursor)
		for it.Seek(start); it.Valid(); it.Next() {
			suffix := string(it.Item().Key())[len(pfxReportOpen):]
			if cursor != "" && suffix <= cursor {
				continue
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				it.Close()
				return err
			}
			ids = append(ids, string(val))
			if len(ids) == limit {
				next = suffix
				break
			}
		}
		it.Close()

		for _, id := range ids {
			var r datatypes.Report
			if err := getJSON(txn, reportKey(id), &r); err != nil {
				return err
			}
			reports = append(reports, &r)
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("list open reports: %w", err)
	}
	return reports, next, nil
}

// CountOpenReports returns the size of the open queue, surfaced by the
// moderation metrics gauge.
func (s *Store) CountOpenReports(ctx context.Context) (int64, error) {
	var n int64
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		n, err = countPrefix(txn, []byte(pfxReportOpen))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count open reports: %w", err)
	}
	return n, nil
}
