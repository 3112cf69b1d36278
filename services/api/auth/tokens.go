// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/awnumar/memguard"

	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/store"
)

// tokenBytes is the entropy of a session token before encoding.
const tokenBytes = 32

// DefaultSessionTTL is how long a session lives without renewal.
const DefaultSessionTTL = 30 * 24 * time.Hour

// ErrUnauthorized is returned when a token does not resolve to a live
// session.
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo is the identity attached to an authenticated request.
type AuthInfo struct {
	UserID   string
	Username string
	Roles    []string
}

// IsModerator reports whether the identity may act on moderation
// resources. Admins are implicitly moderators.
func (a *AuthInfo) IsModerator() bool {
	return a.hasRole(datatypes.RoleModerator) || a.hasRole(datatypes.RoleAdmin)
}

// IsAdmin reports whether the identity carries the admin role.
func (a *AuthInfo) IsAdmin() bool {
	return a.hasRole(datatypes.RoleAdmin)
}

func (a *AuthInfo) hasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SessionStore is the persistence surface Manager needs. *store.Store
// satisfies it.
type SessionStore interface {
	PutSession(ctx context.Context, sess *datatypes.Session) error
	GetSession(ctx context.Context, tokenHash string) (*datatypes.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	GetUser(ctx context.Context, id string) (*datatypes.User, error)
}

// Manager mints and validates bearer session tokens.
//
// The raw token is returned to the client exactly once at login. The
// store only ever sees HMAC-SHA256(key, token), keyed by a secret held
// in a memguard enclave so it is encrypted when at rest in process
// memory.
type Manager struct {
	store SessionStore
	key   *memguard.Enclave
	ttl   time.Duration
}

// NewManager builds a Manager around the given store. secret is the
// HMAC key; a 32-byte random value is generated when it is empty, which
// invalidates all sessions on restart. Persistent deployments configure
// a fixed secret.
func NewManager(s SessionStore, secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	// NewEnclave wipes the secret slice after sealing it.
	return &Manager{
		store: s,
		key:   memguard.NewEnclave(secret),
		ttl:   ttl,
	}, nil
}

// Issue creates a session for the user and returns the raw bearer token
// together with its expiry.
func (m *Manager) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := m.hashToken(token)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	expires := now.Add(m.ttl)
	err = m.store.PutSession(ctx, &datatypes.Session{
		Token:     hash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: expires,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("store session: %w", err)
	}
	return token, expires, nil
}

// Validate resolves a bearer token to the identity behind it. Expired
// or unknown tokens map to ErrUnauthorized.
func (m *Manager) Validate(ctx context.Context, token string) (*AuthInfo, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	hash, err := m.hashToken(token)
	if err != nil {
		return nil, err
	}

	sess, err := m.store.GetSession(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	user, err := m.store.GetUser(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		// Account deleted after the session was minted.
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if user.Suspended {
		// Suspension takes effect on the next request even while
		// sessions minted before it are still in the store.
		return nil, ErrUnauthorized
	}

	return &AuthInfo{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
	}, nil
}

// Revoke deletes the session behind a bearer token. Unknown tokens are
// a no-op so logout is idempotent.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	hash, err := m.hashToken(token)
	if err != nil {
		return err
	}
	if err := m.store.DeleteSession(ctx, hash); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// hashToken computes the storage key for a raw token. The enclave is
// opened only for the duration of the HMAC computation.
func (m *Manager) hashToken(token string) (string, error) {
	buf, err := m.key.Open()
	if err != nil {
		return "", fmt.Errorf("open session key enclave: %w", err)
	}
	defer buf.Destroy()

	mac := hmac.New(sha256.New, buf.Bytes())
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
