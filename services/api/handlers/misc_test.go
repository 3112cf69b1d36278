// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/trending"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ok")
}

func TestTrendingRanksByEngagement(t *testing.T) {
	env := newTestEnv(t)
	aliceToken, _ := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")
	carolToken, _ := env.register(t, "carol")

	quiet := env.createSnippet(t, aliceToken, "Quiet")
	popular := env.createSnippet(t, aliceToken, "Popular")
	for _, token := range []string{bobToken, carolToken} {
		w := env.do(t, http.MethodPost, "/v1/snippets/"+popular.Snippet.ID+"/star", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(t, http.MethodGet, "/v1/trending", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Entries []trending.Entry `json:"entries"`
	}](t, w)
	require.NotEmpty(t, resp.Entries)
	require.Equal(t, popular.Snippet.ID, resp.Entries[0].Snippet.ID)
	for _, e := range resp.Entries {
		if e.Snippet.ID == quiet.Snippet.ID {
			require.Less(t, e.Score, resp.Entries[0].Score)
		}
	}
}

func TestBackupEndpointAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	userToken, _ := env.register(t, "alice")
	adminToken, adminID := env.register(t, "boss")
	env.promote(t, adminID, datatypes.RoleAdmin)

	w := env.do(t, http.MethodPost, "/v1/admin/backups", userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/v1/admin/backups", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Location string `json:"location"`
	}](t, w)
	require.Contains(t, resp.Location, "snippetia-")
	require.Contains(t, resp.Location, ".tar.gz")
}
