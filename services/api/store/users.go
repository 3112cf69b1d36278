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

// CreateUser persists a new account. The username must already be
// normalized (pkg/validation.SanitizeUsername); uniqueness is enforced
// case-insensitively via the uname index. The first account ever
// created is granted the admin role.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*datatypes.User, error) {
	now := time.Now().UTC()
	user := &datatypes.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  username,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        []string{datatypes.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		taken, err := exists(txn, usernameKey(username))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("username %q: %w", username, ErrConflict)
		}

		// First account bootstraps the instance admin.
		n, err := countPrefix(txn, []byte(pfxUsername))
		if err != nil {
			return err
		}
		if n == 0 {
			user.Roles = []string{datatypes.RoleUser, datatypes.RoleAdmin}
		}

		if err := txn.Set(usernameKey(username), []byte(user.ID)); err != nil {
			return err
		}
		return setJSON(txn, userKey(user.ID), user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser fetches an account by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*datatypes.User, error) {
	var user datatypes.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return &user, nil
}

// GetUserByUsername resolves a username (case-insensitive) to its account.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*datatypes.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var user datatypes.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		id, err := getString(txn, usernameKey(username))
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return &user, nil
}

// UpdateUser applies fn to the stored record inside one transaction and
// persists the result. fn sees the latest committed state.
func (s *Store) UpdateUser(ctx context.Context, id string, fn func(*datatypes.User) error) (*datatypes.User, error) {
	var user datatypes.User
	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := getJSON(txn, userKey(id), &user); err != nil {
			return err
		}
		if err := fn(&user); err != nil {
			return err
		}
		user.UpdatedAt = time.Now().UTC()
		return setJSON(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return &user, nil
}

// ListUsers returns up to limit accounts ordered by username. cursor is
// the last username from the previous page; empty starts from the top.
func (s *Store) ListUsers(ctx context.Context, cursor string, limit int) ([]*datatypes.User, string, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var users []*datatypes.User
	var next string
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(pfxUsername)})
		defer it.Close()

		start := []byte(pfxUsername + cursor)
		for it.Seek(start); it.Valid(); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), pfxUsername)
			if name <= cursor && cursor != "" {
				continue
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var user datatypes.User
			if err := getJSON(txn, userKey(string(id)), &user); err != nil {
				return err
			}
			users = append(users, &user)
			if len(users) == limit {
				next = name
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return users, next, nil
}
