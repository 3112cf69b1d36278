// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package trending

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

type fakeSource struct {
	snippets []*datatypes.Snippet
	calls    atomic.Int64
}

func (f *fakeSource) ListRecentSnippets(_ context.Context, since time.Time, limit int) ([]*datatypes.Snippet, error) {
	f.calls.Add(1)
	var out []*datatypes.Snippet
	for _, s := range f.snippets {
		if s.CreatedAt.After(since) && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func snip(lang string, age time.Duration, likes, stars, comments int64) *datatypes.Snippet {
	return &datatypes.Snippet{
		ID:           lang + age.String(),
		Language:     lang,
		Visibility:   datatypes.VisibilityPublic,
		Likes:        likes,
		Stars:        stars,
		CommentCount: comments,
		CreatedAt:    time.Now().UTC().Add(-age),
	}
}

func TestScoreDecay(t *testing.T) {
	now := time.Now().UTC()
	fresh := snip("go", time.Hour, 10, 0, 0)
	stale := snip("go", 10*24*time.Hour, 10, 0, 0)

	require.Greater(t, Score(fresh, now), Score(stale, now),
		"same engagement scores higher when fresher")
}

func TestScoreWeights(t *testing.T) {
	now := time.Now().UTC()
	liked := snip("go", time.Hour, 3, 0, 0)    // 6
	starred := snip("go", time.Hour, 0, 3, 0)  // 9
	comments := snip("go", time.Hour, 0, 0, 3) // 3

	require.Greater(t, Score(starred, now), Score(liked, now))
	require.Greater(t, Score(liked, now), Score(comments, now))
}

func TestTopRanksAndLimits(t *testing.T) {
	src := &fakeSource{snippets: []*datatypes.Snippet{
		snip("go", time.Hour, 50, 20, 10),
		snip("go", time.Hour, 1, 0, 0),
		snip("go", time.Hour, 10, 5, 2),
	}}
	svc := New(src, nil, 0)

	top, err := svc.Top(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.GreaterOrEqual(t, top[0].Score, top[1].Score)
	require.Equal(t, int64(50), top[0].Snippet.Likes)
}

func TestTopLanguageFilter(t *testing.T) {
	src := &fakeSource{snippets: []*datatypes.Snippet{
		snip("go", time.Hour, 5, 0, 0),
		snip("python", time.Hour, 50, 0, 0),
	}}
	svc := New(src, nil, 0)

	top, err := svc.Top(context.Background(), "go", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, "go", top[0].Snippet.Language)
}

func TestTopExcludesOldSnippets(t *testing.T) {
	src := &fakeSource{snippets: []*datatypes.Snippet{
		snip("go", 15*24*time.Hour, 1000, 1000, 1000),
		snip("go", time.Hour, 1, 0, 0),
	}}
	svc := New(src, nil, 0)

	top, err := svc.Top(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, top, 1, "snippets outside the window never rank")
	require.Equal(t, int64(1), top[0].Snippet.Likes)
}

func TestTopUsesCache(t *testing.T) {
	src := &fakeSource{snippets: []*datatypes.Snippet{
		snip("go", time.Hour, 5, 0, 0),
	}}
	svc := New(src, NewMemoryCache(), time.Minute)

	_, err := svc.Top(context.Background(), "", 10)
	require.NoError(t, err)
	_, err = svc.Top(context.Background(), "", 10)
	require.NoError(t, err)

	require.Equal(t, int64(1), src.calls.Load(), "second request served from cache")
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []int{1, 2}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var out []int
	hit, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	require.False(t, hit)
}
