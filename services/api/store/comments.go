// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// commentSeqKey orders comments oldest-first under their snippet. The
// creation stamp is part of the key so no per-snippet sequence counter
// is needed; the comment ID breaks ties.
func commentSeqKey(snippetID string, t time.Time, commentID string) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d-%s", pfxComment, snippetID, t.UnixNano(), commentID))
}

// CreateComment appends a comment to a snippet and bumps its comment
// counter in the same transaction.
func (s *Store) CreateComment(ctx context.Context, c *datatypes.Comment) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		var snip datatypes.Snippet
		if err := getJSON(txn, snippetKey(c.SnippetID), &snip); err != nil {
			return err
		}
		if err := setJSON(txn, commentSeqKey(c.SnippetID, c.CreatedAt, c.ID), c); err != nil {
			return err
		}
		snip.CommentCount++
		return setJSON(txn, snippetKey(c.SnippetID), &snip)
	})
	if err != nil {
		return fmt.Errorf("create comment on %s: %w", c.SnippetID, err)
	}
	return nil
}

// ListComments returns a snippet's comments oldest first. The cursor is
// the key suffix of the last comment from the previous page.
func (s *Store) ListComments(ctx context.Context, snippetID, cursor string, limit int) ([]datatypes.Comment, string, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	prefix := pfxComment + snippetID + "/"

	var (
		comments []datatypes.Comment
		next     string
	)
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(prefix),
			PrefetchValues: true,
			PrefetchSize:   limit,
		})
		defer it.Close()

		start := []byte(prefix + cursor)
		for it.Seek(start); it.Valid(); it.Next() {
			suffix := string(it.Item().Key())[len(prefix):]
			if cursor != "" && suffix <= cursor {
				continue
			}
			var c datatypes.Comment
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalInto(val, &c)
			}); err != nil {
				return err
			}
			comments = append(comments, c)
			if len(comments) == limit {
				next = suffix
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("list comments for %s: %w", snippetID, err)
	}
	return comments, next, nil
}

// DeleteComment removes a single comment and decrements the snippet
// counter. The snippet surviving the comment is not required; moderation
// may remove comments after the snippet is gone.
func (s *Store) DeleteComment(ctx context.Context, snippetID, commentID string) error {
	prefix := pfxComment + snippetID + "/"
	err := s.update(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(prefix),
			PrefetchValues: false,
		})
		var target []byte
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if string(key[len(key)-len(commentID):]) == commentID {
				target = it.Item().KeyCopy(nil)
				break
			}
		}
		it.Close()
		if target == nil {
			return ErrNotFound
		}
		if err := txn.Delete(target); err != nil {
			return err
		}

		var snip datatypes.Snippet
		err := getJSON(txn, snippetKey(snippetID), &snip)
		switch {
		case err == nil:
			snip.CommentCount--
			return setJSON(txn, snippetKey(snippetID), &snip)
		case errors.Is(err, ErrNotFound):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return fmt.Errorf("delete comment %s: %w", commentID, err)
	}
	return nil
}

// GetComment looks up a single comment by snippet and comment ID.
func (s *Store) GetComment(ctx context.Context, snippetID, commentID string) (*datatypes.Comment, error) {
	prefix := pfxComment + snippetID + "/"
	var found *datatypes.Comment
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if string(key[len(key)-len(commentID):]) != commentID {
				continue
			}
			var c datatypes.Comment
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalInto(val, &c)
			}); err != nil {
				return err
			}
			found = &c
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return nil, fmt.Errorf("get comment %s: %w", commentID, err)
	}
	return found, nil
}
