// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/auth"
	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/handlers"
	"github.com/snippetia/snippetia/services/api/routes"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/backup"
	"github.com/snippetia/snippetia/services/feed"
	"github.com/snippetia/snippetia/services/monetize"
	"github.com/snippetia/snippetia/services/scanner"
	"github.com/snippetia/snippetia/services/trending"
)

// testEnv wires the full route tree over an in-memory store so tests
// exercise the same stack a deployed server runs.
type testEnv struct {
	store   *store.Store
	auth    *auth.Manager
	gateway *monetize.FakeGateway
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	manager, err := auth.NewManager(st, []byte("handlers-test-secret"), time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := monetize.NewFakeGateway()
	hub := feed.NewHub(logger)
	t.Cleanup(hub.Close)

	router := gin.New()
	routes.SetupRoutes(router, routes.Deps{
		Store:     st,
		Auth:      manager,
		Scanner:   scanner.New(),
		Trending:  trending.New(st, trending.NewMemoryCache(), time.Minute),
		Monetize:  monetize.NewService(st, gateway, logger),
		Hub:       hub,
		Backup:    backup.NewService(st, logger),
		BackupCfg: handlers.BackupConfig{Dir: t.TempDir()},
		Logger:    logger,
	})

	return &testEnv{store: st, auth: manager, gateway: gateway, router: router}
}

// do runs one request through the router. A non-empty token is sent as
// a bearer credential.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// register creates an account through the API and returns its token
// and user ID.
func (e *testEnv) register(t *testing.T, username string) (token, userID string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/auth/register", "", datatypes.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[datatypes.LoginResponse](t, w)
	return resp.Token, resp.UserID
}

// promote grants roles directly in the store. Tokens minted before the
// change pick the roles up on the next request.
func (e *testEnv) promote(t *testing.T, userID string, roles ...string) {
	t.Helper()
	_, err := e.store.UpdateUser(t.Context(), userID, func(u *datatypes.User) error {
		u.Roles = append(u.Roles, roles...)
		return nil
	})
	require.NoError(t, err)
}

// createSnippet posts a plain public snippet and returns it.
func (e *testEnv) createSnippet(t *testing.T, token, title string) datatypes.SnippetResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/snippets", token, datatypes.CreateSnippetRequest{
		Title:    title,
		Language: "go",
		Content:  "package main\n\nfunc main() {}\n",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[datatypes.SnippetResponse](t, w)
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	token, userID := env.register(t, "alice")
	require.NotEmpty(t, token)

	w := env.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[datatypes.Profile](t, w)
	require.Equal(t, userID, me.ID)
	require.Equal(t, "alice", me.Username)

	// Fresh login issues a second independent session.
	w = env.do(t, http.MethodPost, "/v1/auth/login", "", datatypes.LoginRequest{
		Username: "alice",
		Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[datatypes.LoginResponse](t, w)
	require.NotEqual(t, token, second.Token)

	// Logout revokes only the presented token.
	w = env.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(t, http.MethodGet, "/v1/me", second.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	for _, req := range []datatypes.LoginRequest{
		{Username: "alice", Password: "wrong-password-entirely"},
		{Username: "nobody", Password: "correct-horse-battery"},
	} {
		w := env.do(t, http.MethodPost, "/v1/auth/login", "", req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), "invalid credentials")
	}
}

func TestDuplicateUsernameConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	w := env.do(t, http.MethodPost, "/v1/auth/register", "", datatypes.RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestProfileVisibility(t *testing.T) {
	env := newTestEnv(t)
	aliceToken, aliceID := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")

	// Anonymous read works and hides the email.
	w := env.do(t, http.MethodGet, "/v1/users/"+aliceID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "alice@example.com")

	// Username addressing resolves too.
	w = env.do(t, http.MethodGet, "/v1/users/alice", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "alice@example.com")

	// The owner sees their own email.
	w = env.do(t, http.MethodGet, "/v1/users/"+aliceID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "alice@example.com")
}

func TestListUsersRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "alice")

	w := env.do(t, http.MethodGet, "/v1/users", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	env.promote(t, userID, datatypes.RoleAdmin)
	w = env.do(t, http.MethodGet, "/v1/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
