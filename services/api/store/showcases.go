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

	"github.com/dgraph-io/badger/v4"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// CreateShowcase persists a showcase after checking that every
// referenced snippet exists and belongs to the owner.
func (s *Store) CreateShowcase(ctx context.Context, sc *datatypes.Showcase) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := verifyShowcaseSnippets(txn, sc); err != nil {
			return err
		}
		if err := txn.Set(markKey(pfxShowOwner, sc.OwnerID, sc.ID), []byte(sc.ID)); err != nil {
			return err
		}
		return setJSON(txn, showcaseKey(sc.ID), sc)
	})
	if err != nil {
		return fmt.Errorf("create showcase: %w", err)
	}
	return nil
}

// GetShowcase looks a showcase up by ID.
func (s *Store) GetShowcase(ctx context.Context, id string) (*datatypes.Showcase, error) {
	var sc datatypes.Showcase
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, showcaseKey(id), &sc)
	})
	if err != nil {
		return nil, fmt.Errorf("get showcase %s: %w", id, err)
	}
	return &sc, nil
}

// UpdateShowcase applies fn to the current record and revalidates the
// snippet references before writing.
func (s *Store) UpdateShowcase(ctx context.Context, id string, fn func(sc *datatypes.Showcase) error) (*datatypes.Showcase, error) {
	var updated datatypes.Showcase
	err := s.update(ctx, func(txn *badger.Txn) error {
		var sc datatypes.Showcase
		if err := getJSON(txn, showcaseKey(id), &sc); err != nil {
			return err
		}
		if err := fn(&sc); err != nil {
			return err
		}
		if err := verifyShowcaseSnippets(txn, &sc); err != nil {
			return err
		}
		updated = sc
		return setJSON(txn, showcaseKey(id), &sc)
	})
	if err != nil {
		return nil, fmt.Errorf("update showcase %s: %w", id, err)
	}
	return &updated, nil
}

// DeleteShowcase removes a showcase and its owner index entry.
func (s *Store) DeleteShowcase(ctx context.Context, id string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		var sc datatypes.Showcase
		if err := getJSON(txn, showcaseKey(id), &sc); err != nil {
			return err
		}
		if err := txn.Delete(markKey(pfxShowOwner, sc.OwnerID, id)); err != nil {
			return err
		}
		return txn.Delete(showcaseKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete showcase %s: %w", id, err)
	}
	return nil
}

// ListUserShowcases returns a user's showcases ordered by ID.
func (s *Store) ListUserShowcases(ctx context.Context, ownerID string) ([]*datatypes.Showcase, error) {
	prefix := pfxShowOwner + ownerID + "/"
	var showcases []*datatypes.Showcase
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix), PrefetchValues: false})
		defer it.Close()

		var ids []string
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		for _, id := range ids {
			var sc datatypes.Showcase
			if err := getJSON(txn, showcaseKey(id), &sc); err != nil {
				return err
			}
			showcases = append(showcases, &sc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list showcases for %s: %w", ownerID, err)
	}
	return showcases, nil
}

// verifyShowcaseSnippets rejects references to missing snippets or
// snippets owned by somebody else.
func verifyShowcaseSnippets(txn *badger.Txn, sc *datatypes.Showcase) error {
	for _, snipID := range sc.SnippetIDs {
		var snip datatypes.Snippet
		if err := getJSON(txn, snippetKey(snipID), &snip); err != nil {
			return fmt.Errorf("snippet %s: %w", snipID, err)
		}
		if snip.OwnerID != sc.OwnerID {
			return fmt.Errorf("snippet %s not owned by showcase owner: %w", snipID, ErrConflict)
		}
	}
	return nil
}
