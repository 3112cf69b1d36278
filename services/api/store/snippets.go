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
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// CreateSnippet persists a new snippet head plus its version 1 content
// and all list indexes in one transaction.
func (s *Store) CreateSnippet(ctx context.Context, snip *datatypes.Snippet, content, note string) (*datatypes.Snippet, error) {
	now := time.Now().UTC()
	snip.ID = uuid.NewString()
	snip.CurrentVersion = 1
	snip.CreatedAt = now
	snip.UpdatedAt = now

	version := &datatypes.SnippetVersion{
		SnippetID: snip.ID,
		Version:   1,
		Content:   content,
		Note:      note,
		CreatedAt: now,
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := setJSON(txn, snippetKey(snip.ID), snip); err != nil {
			return err
		}
		if err := setJSON(txn, versionKey(snip.ID, 1), version); err != nil {
			return err
		}
		return writeSnippetIndexes(txn, snip)
	})
	if err != nil {
		return nil, err
	}
	return snip, nil
}

// writeSnippetIndexes writes the owner/channel/language/time list
// entries for a snippet head. Index keys embed CreatedAt, which never
// changes, so rewriting them is idempotent.
func writeSnippetIndexes(txn *badger.Txn, snip *datatypes.Snippet) error {
	id := []byte(snip.ID)
	if err := txn.Set(scopedIndexKey(pfxSnippetOwner, snip.OwnerID, snip.CreatedAt, snip.ID), id); err != nil {
		return err
	}
	if err := txn.Set(scopedIndexKey(pfxSnippetLang, snip.Language, snip.CreatedAt, snip.ID), id); err != nil {
		return err
	}
	if err := txn.Set(timeIndexKey(pfxSnippetTime, snip.CreatedAt, snip.ID), id); err != nil {
		return err
	}
	if snip.ChannelID != "" {
		return txn.Set(scopedIndexKey(pfxSnippetChan, snip.ChannelID, snip.CreatedAt, snip.ID), id)
	}
	return nil
}

// GetSnippet fetches a snippet head by ID.
func (s *Store) GetSnippet(ctx context.Context, id string) (*datatypes.Snippet, error) {
	var snip datatypes.Snippet
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, snippetKey(id), &snip)
	})
	if err != nil {
		return nil, fmt.Errorf("snippet %s: %w", id, err)
	}
	return &snip, nil
}

// GetVersion fetches one revision of a snippet. version 0 resolves to
// the current version.
func (s *Store) GetVersion(ctx context.Context, snippetID string, version int) (*datatypes.SnippetVersion, error) {
	var ver datatypes.SnippetVersion
	err := s.view(ctx, func(txn *badger.Txn) error {
		v := version
		if v == 0 {
			var snip datatypes.Snippet
			if err := getJSON(txn, snippetKey(snippetID), &snip); err != nil {
				return err
			}
			v = snip.CurrentVersion
		}
		return getJSON(txn, versionKey(snippetID, v), &ver)
	})
	if err != nil {
		return nil, fmt.Errorf("snippet %s version %d: %w", snippetID, version, err)
	}
	return &ver, nil
}

// AddVersion appends a new revision and bumps CurrentVersion. If the
// new content is byte-identical to the current revision no version is
// created and the current one is returned unchanged.
func (s *Store) AddVersion(ctx context.Context, snippetID, content, note string) (*datatypes.SnippetVersion, error) {
	var result datatypes.SnippetVersion
	err := s.update(ctx, func(txn *badger.Txn) error {
		var snip datatypes.Snippet
		if err := getJSON(txn, snippetKey(snippetID), &snip); err != nil {
			return err
		}
		var current datatypes.SnippetVersion
		if err := getJSON(txn, versionKey(snippetID, snip.CurrentVersion), &current); err != nil {
			return err
		}
		if current.Content == content {
			result = current
			return nil
		}

		result = datatypes.SnippetVersion{
			SnippetID: snippetID,
			Version:   snip.CurrentVersion + 1,
			Content:   content,
			Note:      note,
			CreatedAt: time.Now().UTC(),
		}
		if err := setJSON(txn, versionKey(snippetID, result.Version), &result); err != nil {
			return err
		}
		snip.CurrentVersion = result.Version
		snip.UpdatedAt = result.CreatedAt
		return setJSON(txn, snippetKey(snippetID), &snip)
	})
	if err != nil {
		return nil, fmt.Errorf("add version to snippet %s: %w", snippetID, err)
	}
	return &result, nil
}

// ListVersions returns all revisions of a snippet, oldest first.
func (s *Store) ListVersions(ctx context.Context, snippetID string) ([]*datatypes.SnippetVersion, error) {
	var versions []*datatypes.SnippetVersion
	err := s.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(pfxVersion + snippetID + "/")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var ver datatypes.SnippetVersion
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalInto(val, &ver)
			}); err != nil {
				return err
			}
			versions = append(versions, &ver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("snippet %s: %w", snippetID, ErrNotFound)
	}
	return versions, nil
}

// UpdateSnippetMeta applies fn to the head record. Title, visibility,
// and channel moves are handled here; a channel move rewrites the
// channel index entry.
func (s *Store) UpdateSnippetMeta(ctx context.Context, id string, fn func(*datatypes.Snippet) error) (*datatypes.Snippet, error) {
	var snip datatypes.Snippet
	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := getJSON(txn, snippetKey(id), &snip); err != nil {
			return err
		}
		oldChannel := snip.ChannelID
		if err := fn(&snip); err != nil {
			return err
		}
		if snip.ChannelID != oldChannel {
			if oldChannel != "" {
				if err := txn.Delete(scopedIndexKey(pfxSnippetChan, oldChannel, snip.CreatedAt, snip.ID)); err != nil {
					return err
				}
			}
			if snip.ChannelID != "" {
				if err := txn.Set(scopedIndexKey(pfxSnippetChan, snip.ChannelID, snip.CreatedAt, snip.ID), []byte(snip.ID)); err != nil {
					return err
				}
			}
		}
		snip.UpdatedAt = time.Now().UTC()
		return setJSON(txn, snippetKey(id), &snip)
	})
	if err != nil {
		return nil, fmt.Errorf("update snippet %s: %w", id, err)
	}
	return &snip, nil
}

// DeleteSnippet removes the head, all versions, comments, social marks,
// and index entries in one transaction.
func (s *Store) DeleteSnippet(ctx context.Context, id string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var snip datatypes.Snippet
		if err := getJSON(txn, snippetKey(id), &snip); err != nil {
			return err
		}
		if err := txn.Delete(snippetKey(id)); err != nil {
			return err
		}
		for _, prefix := range []string{
			pfxVersion + id + "/",
			pfxComment + id + "/",
			pfxLike + id + "/",
			pfxStar + id + "/",
		} {
			if err := deletePrefix(txn, []byte(prefix)); err != nil {
				return err
			}
		}
		if err := txn.Delete(scopedIndexKey(pfxSnippetOwner, snip.OwnerID, snip.CreatedAt, id)); err != nil {
			return err
		}
		if err := txn.Delete(scopedIndexKey(pfxSnippetLang, snip.Language, snip.CreatedAt, id)); err != nil {
			return err
		}
		if err := txn.Delete(timeIndexKey(pfxSnippetTime, snip.CreatedAt, id)); err != nil {
			return err
		}
		if snip.ChannelID != "" {
			return txn.Delete(scopedIndexKey(pfxSnippetChan, snip.ChannelID, snip.CreatedAt, id))
		}
		return nil
	})
}

// SnippetFilter selects which index ListSnippets walks. Zero value
// means the global newest-first index.
type SnippetFilter struct {
	OwnerID   string
	ChannelID string
	Language  string
}

// ListSnippets pages through snippet heads newest-first. cursor is the
// opaque value returned by the previous call; empty starts at the top.
func (s *Store) ListSnippets(ctx context.Context, filter SnippetFilter, cursor string, limit int) ([]*datatypes.Snippet, string, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	prefix := pfxSnippetTime
	switch {
	case filter.OwnerID != "":
		prefix = pfxSnippetOwner + filter.OwnerID + "/"
	case filter.ChannelID != "":
		prefix = pfxSnippetChan + filter.ChannelID + "/"
	case filter.Language != "":
		prefix = pfxSnippetLang + filter.Language + "/"
	}

	var snippets []*datatypes.Snippet
	var next string
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
		defer it.Close()

		start := []byte(prefix + cursor)
		for it.Seek(start); it.Valid(); it.Next() {
			suffix := strings.TrimPrefix(string(it.Item().Key()), prefix)
			if cursor != "" && suffix <= cursor {
				continue
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var snip datatypes.Snippet
			if err := getJSON(txn, snippetKey(string(id)), &snip); err != nil {
				return err
			}
			snippets = append(snippets, &snip)
			if len(snippets) == limit {
				next = suffix
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return snippets, next, nil
}

// ListRecentSnippets returns public snippets created after the given
// cutoff, newest first, capped at limit. Used by the trending service.
func (s *Store) ListRecentSnippets(ctx context.Context, since time.Time, limit int) ([]*datatypes.Snippet, error) {
	if limit <= 0 {
		limit = 500
	}

	var snippets []*datatypes.Snippet
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(pfxSnippetTime)})
		defer it.Close()

		for it.Rewind(); it.Valid() && len(snippets) < limit; it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var snip datatypes.Snippet
			if err := getJSON(txn, snippetKey(string(id)), &snip); err != nil {
				return err
			}
			if snip.CreatedAt.Before(since) {
				// Index is newest-first; everything after is older.
				break
			}
			if snip.Visibility == datatypes.VisibilityPublic {
				snippets = append(snippets, &snip)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snippets, nil
}
