// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"
)

const (
	// MaxSnippetContentBytes is the maximum size of one snippet version.
	// Checked in bytes, not runes, to bound memory usage.
	MaxSnippetContentBytes = 256 * 1024 // 256KB

	// MaxCommentBytes is the maximum size of a comment body.
	MaxCommentBytes = 4096
)

// Visibility values for snippets.
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"
)

// Snippet is the mutable head record of a code snippet. The content of
// each revision lives in SnippetVersion; CurrentVersion points at the
// newest one. Social counters are maintained transactionally with the
// mark writes in the store.
type Snippet struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	ChannelID      string    `json:"channel_id,omitempty"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Language       string    `json:"language"`
	Visibility     string    `json:"visibility"`
	CurrentVersion int       `json:"current_version"`
	Likes          int64     `json:"likes"`
	Stars          int64     `json:"stars"`
	CommentCount   int64     `json:"comment_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SnippetVersion is one immutable revision of a snippet's content.
// Versions are dense: 1..Snippet.CurrentVersion with no gaps.
type SnippetVersion struct {
	SnippetID string    `json:"snippet_id"`
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// LanguageStats summarizes the structure of a snippet body, produced by
// the snippetlang service at write time.
type LanguageStats struct {
	Language  string `json:"language"`
	Lines     int    `json:"lines"`
	Functions int    `json:"functions"`
	Parsed    bool   `json:"parsed"`
}

// CreateSnippetRequest is the body of POST /v1/snippets.
type CreateSnippetRequest struct {
	Title      string `json:"title" binding:"required,min=1,max=140"`
	Language   string `json:"language" binding:"required,max=32"`
	Content    string `json:"content" binding:"required"`
	Visibility string `json:"visibility" binding:"omitempty,oneof=public unlisted private"`
	ChannelID  string `json:"channel_id" binding:"omitempty,uuid"`
	Note       string `json:"note" binding:"omitempty,max=200"`
}

// UpdateSnippetContentRequest is the body of POST /v1/snippets/:id/versions.
type UpdateSnippetContentRequest struct {
	Content string `json:"content" binding:"required"`
	Note    string `json:"note" binding:"omitempty,max=200"`
}

// UpdateSnippetMetaRequest is the body of PATCH /v1/snippets/:id.
// Nil fields are left unchanged.
type UpdateSnippetMetaRequest struct {
	Title      *string `json:"title" binding:"omitempty,min=1,max=140"`
	Visibility *string `json:"visibility" binding:"omitempty,oneof=public unlisted private"`
	ChannelID  *string `json:"channel_id"`
}

// SnippetResponse is a snippet head plus the requested version content.
type SnippetResponse struct {
	Snippet Snippet        `json:"snippet"`
	Version SnippetVersion `json:"version"`
	Stats   *LanguageStats `json:"stats,omitempty"`
}

// VersionDiffResponse is the body of GET /v1/snippets/:id/diff.
type VersionDiffResponse struct {
	SnippetID   string     `json:"snippet_id"`
	FromVersion int        `json:"from_version"`
	ToVersion   int        `json:"to_version"`
	Unified     string     `json:"unified"`
	Hunks       []DiffHunk `json:"hunks"`
}

// DiffHunk is the structural form of one diff hunk.
type DiffHunk struct {
	OrigStartLine int    `json:"orig_start_line"`
	OrigLines     int    `json:"orig_lines"`
	NewStartLine  int    `json:"new_start_line"`
	NewLines      int    `json:"new_lines"`
	Body          string `json:"body"`
}

// Comment is a user comment attached to a snippet.
type Comment struct {
	ID        string    `json:"id"`
	SnippetID string    `json:"snippet_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommentRequest is the body of POST /v1/snippets/:id/comments.
type CreateCommentRequest struct {
	Body string `json:"body" binding:"required,min=1,max=4000"`
}

// Showcase is a developer's curated portfolio entry referencing snippets.
type Showcase struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	RepoURL    string    `json:"repo_url,omitempty"`
	SnippetIDs []string  `json:"snippet_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ShowcaseRequest is the body of POST and PUT /v1/showcases.
type ShowcaseRequest struct {
	Title      string   `json:"title" binding:"required,min=1,max=140"`
	Summary    string   `json:"summary" binding:"required,max=2000"`
	RepoURL    string   `json:"repo_url" binding:"omitempty,url,max=500"`
	SnippetIDs []string `json:"snippet_ids" binding:"omitempty,max=20,dive,uuid"`
}
