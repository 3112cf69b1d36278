// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// PutSession stores a login session keyed by the HMAC of its bearer
// token. The caller (services/api/auth) performs the hashing; plaintext
// tokens never reach the store.
func (s *Store) PutSession(ctx context.Context, sess *datatypes.Session) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, sessionKey(sess.Token), sess)
	})
}

// GetSession resolves a token hash to its session. Expired sessions are
// reported as ErrNotFound; the TTL sweeper removes the record later.
func (s *Store) GetSession(ctx context.Context, tokenHash string) (*datatypes.Session, error) {
	var sess datatypes.Session
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, sessionKey(tokenHash), &sess)
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if sess.Expired(time.Now().UTC()) {
		return nil, fmt.Errorf("session expired: %w", ErrNotFound)
	}
	return &sess, nil
}

// DeleteSession revokes a session (logout). Deleting an absent session
// is a no-op.
func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(tokenHash))
	})
}

// DeleteExpiredSessions removes up to limit sessions whose expiry is
// before now. Returns the number removed; callers loop until zero.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}

	var expired []string
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(pfxSession)})
		defer it.Close()

		for it.Rewind(); it.Valid() && len(expired) < limit; it.Next() {
			var sess datatypes.Session
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &sess)
			}); err != nil {
				return err
			}
			if sess.Expired(now) {
				expired = append(expired, strings.TrimPrefix(string(item.Key()), pfxSession))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		for _, hash := range expired {
			if err := txn.Delete(sessionKey(hash)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(expired), nil
}
