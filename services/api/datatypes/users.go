// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the domain types and request/response shapes
// for the Snippetia API service.
//
// This file contains account types. Snippet types live in snippets.go,
// channel and subscription types in channels.go, moderation types in
// moderation.go.
package datatypes

import (
	"time"
)

// Role names used in User.Roles.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User is a registered account.
//
// PasswordHash is the encoded argon2id hash and must never reach an API
// response; handlers return Profile instead.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Bio          string    `json:"bio"`
	Roles        []string  `json:"roles"`
	Suspended    bool      `json:"suspended,omitempty"`
	Followers    int64     `json:"followers"`
	Following    int64     `json:"following"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsModerator reports whether the user may act on moderation resources.
// Admins are implicitly moderators.
func (u *User) IsModerator() bool {
	return u.HasRole(RoleModerator) || u.HasRole(RoleAdmin)
}

// Profile is the public view of a User.
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Bio         string    `json:"bio"`
	Roles       []string  `json:"roles"`
	Followers   int64     `json:"followers"`
	Following   int64     `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublicProfile strips owner-only fields from a User.
// Email is included only when includeEmail is set (owner or admin view).
func (u *User) PublicProfile(includeEmail bool) Profile {
	p := Profile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		Roles:       u.Roles,
		Followers:   u.Followers,
		Following:   u.Following,
		CreatedAt:   u.CreatedAt,
	}
	if includeEmail {
		p.Email = u.Email
	}
	return p
}

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=10,max=128"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateProfileRequest is the body of PATCH /v1/users/me.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=80"`
	Bio         *string `json:"bio" binding:"omitempty,max=1000"`
}

// Session is a server-side login session. Token holds the HMAC of the
// presented bearer token, never the token itself.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given
// instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
