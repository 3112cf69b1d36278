// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package trending ranks recently active public snippets.
//
// The score is engagement over a gravity decay:
//
//	score = (likes*2 + stars*3 + comments) / (ageHours + 2)^1.5
//
// so fresh engagement outranks stale volume. Snippets older than the
// window (14 days) never appear. Pages are cached; concurrent cache
// misses for the same page collapse into one computation via
// singleflight.
package trending

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// Window is how far back trending looks.
const Window = 14 * 24 * time.Hour

// DefaultCacheTTL is how long a computed page stays valid.
const DefaultCacheTTL = 5 * time.Minute

// maxCandidates bounds how many recent snippets one computation scores.
const maxCandidates = 2000

// Entry is one ranked snippet.
type Entry struct {
	Snippet *datatypes.Snippet `json:"snippet"`
	Score   float64            `json:"score"`
}

// SnippetSource supplies candidate snippets. *store.Store satisfies it.
type SnippetSource interface {
	ListRecentSnippets(ctx context.Context, since time.Time, limit int) ([]*datatypes.Snippet, error)
}

// Service computes and caches trending rankings.
type Service struct {
	source   SnippetSource
	cache    Cache
	cacheTTL time.Duration
	group    singleflight.Group

	// now is injectable for tests.
	now func() time.Time
}

// New builds a trending Service. cache may be nil, which disables
// caching (every request recomputes).
func New(source SnippetSource, cache Cache, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		source:   source,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Top returns the highest-scored public snippets, optionally filtered
// by language, capped at limit.
func (s *Service) Top(ctx context.Context, language string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	key := fmt.Sprintf("top:%s:%d", language, limit)

	if s.cache != nil {
		var cached []Entry
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, nil
		}
		// Cache errors degrade to recomputation.
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		entries, err := s.compute(ctx, language, limit)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			// Best effort; a failed cache write only costs the next
			// request a recomputation.
			_ = s.cache.Set(ctx, key, entries, s.cacheTTL)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

func (s *Service) compute(ctx context.Context, language string, limit int) ([]Entry, error) {
	now := s.now()
	candidates, err := s.source.ListRecentSnippets(ctx, now.Add(-Window), maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("load trending candidates: %w", err)
	}

	entries := make([]Entry, 0, len(candidates))
	for _, snip := range candidates {
		if language != "" && snip.Language != language {
			continue
		}
		entries = append(entries, Entry{
			Snippet: snip,
			Score:   Score(snip, now),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Score computes the gravity-decayed engagement score of a snippet at
// the given instant.
func Score(snip *datatypes.Snippet, now time.Time) float64 {
	engagement := float64(snip.Likes*2 + snip.Stars*3 + snip.CommentCount)
	ageHours := now.Sub(snip.CreatedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return engagement / math.Pow(ageHours+2, 1.5)
}
