// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/auth"
	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestAuth returns a manager over a fresh store plus a valid token
// for a seeded user.
func newTestAuth(t *testing.T) (*auth.Manager, string, *datatypes.User) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	user, err := st.CreateUser(context.Background(), "alice", "alice@example.com", "hash")
	require.NoError(t, err)

	manager, err := auth.NewManager(st, nil, time.Hour)
	require.NoError(t, err)

	token, _, err := manager.Issue(context.Background(), user.ID)
	require.NoError(t, err)
	return manager, token, user
}

func TestExtractBearerToken_ValidToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "Bearer abc123")

	assert.Equal(t, "abc123", extractBearerToken(c))
}

func TestExtractBearerToken_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "abc123"},
		{"basic auth", "Basic abc123"},
		{"only bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Empty(t, extractBearerToken(c))
		})
	}
}

func TestExtractBearerToken_CaseInsensitive(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "bEaReR abc123")

	assert.Equal(t, "abc123", extractBearerToken(c))
}

func TestAuthenticate_ValidToken(t *testing.T) {
	manager, token, user := newTestAuth(t)

	router := gin.New()
	router.GET("/me", Authenticate(manager), func(c *gin.Context) {
		info := GetAuthInfo(c)
		require.NotNil(t, info)
		c.JSON(http.StatusOK, gin.H{"user_id": info.UserID})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	manager, _, _ := newTestAuth(t)

	router := gin.New()
	router.GET("/me", Authenticate(manager), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	manager, token, _ := newTestAuth(t)
	require.NoError(t, manager.Revoke(context.Background(), token))

	router := gin.New()
	router.GET("/me", Authenticate(manager), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_Allows(t *testing.T) {
	router := gin.New()
	router.GET("/admin",
		func(c *gin.Context) {
			SetAuthInfo(c, &auth.AuthInfo{UserID: "u1", Roles: []string{datatypes.RoleAdmin}})
		},
		RequireRole(datatypes.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_Forbids(t *testing.T) {
	router := gin.New()
	router.GET("/admin",
		func(c *gin.Context) {
			SetAuthInfo(c, &auth.AuthInfo{UserID: "u1", Roles: []string{datatypes.RoleUser}})
		},
		RequireRole(datatypes.RoleAdmin, datatypes.RoleModerator),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole_Unauthenticated(t *testing.T) {
	router := gin.New()
	router.GET("/admin", RequireRole(datatypes.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})

	router := gin.New()
	router.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_PerClientKeys(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	router := gin.New()
	router.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "client %d", i)
	}
}
