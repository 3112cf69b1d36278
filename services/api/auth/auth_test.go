// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/store"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, err := HashPassword("same password")
	require.NoError(t, err)
	h2, err := HashPassword("same password")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$whatever",
		"$argon2id$v=19$m=65536,t=1,p=4$notbase64!!$also!!",
	} {
		_, err := VerifyPassword("anything", encoded)
		require.ErrorIs(t, err, ErrInvalidHash, "encoded=%q", encoded)
	}
}

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	mgr, err := NewManager(st, []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	return mgr, st
}

func TestIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	mgr, st := newTestManager(t)

	user, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)

	token, expires, err := mgr.Issue(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expires.After(time.Now()))

	info, err := mgr.Validate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, info.UserID)
	require.Equal(t, "alice", info.Username)
	require.True(t, info.IsAdmin(), "first account is admin")
	require.True(t, info.IsModerator())
}

func TestValidateRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	_, err := mgr.Validate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = mgr.Validate(ctx, "not-a-real-token")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	mgr, st := newTestManager(t)

	user, err := st.CreateUser(ctx, "bob", "bob@example.com", "hash")
	require.NoError(t, err)

	token, _, err := mgr.Issue(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(ctx, token))
	_, err = mgr.Validate(ctx, token)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Logout is idempotent.
	require.NoError(t, mgr.Revoke(ctx, token))
}
