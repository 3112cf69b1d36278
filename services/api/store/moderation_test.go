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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

func TestCommentLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	snip := seedSnippet(t, st, uuid.NewString(), "commented", "go", "content")

	var ids []string
	for i := 0; i < 3; i++ {
		c := &datatypes.Comment{
			ID:        uuid.NewString(),
			SnippetID: snip.ID,
			AuthorID:  uuid.NewString(),
			Body:      fmt.Sprintf("comment %d", i),
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, st.CreateComment(ctx, c))
		ids = append(ids, c.ID)
		time.Sleep(time.Millisecond)
	}

	head, err := st.GetSnippet(ctx, snip.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), head.CommentCount)

	page1, cursor, err := st.ListComments(ctx, snip.ID, "", 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, "comment 0", page1[0].Body, "oldest first")
	require.NotEmpty(t, cursor)

	page2, _, err := st.ListComments(ctx, snip.ID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	require.Equal(t, "comment 2", page2[0].Body)

	require.NoError(t, st.DeleteComment(ctx, snip.ID, ids[1]))
	head, err = st.GetSnippet(ctx, snip.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), head.CommentCount)

	_, err = st.GetComment(ctx, snip.ID, ids[1])
	require.ErrorIs(t, err, ErrNotFound)
}

func TestShowcaseOwnership(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	owner := uuid.NewString()
	other := uuid.NewString()

	mine := seedSnippet(t, st, owner, "mine", "go", "a")
	theirs := seedSnippet(t, st, other, "theirs", "go", "b")

	err := st.CreateShowcase(ctx, &datatypes.Showcase{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		Title:      "portfolio",
		Summary:    "my best work",
		SnippetIDs: []string{theirs.ID},
	})
	require.ErrorIs(t, err, ErrConflict)

	sc := &datatypes.Showcase{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		Title:      "portfolio",
		Summary:    "my best work",
		SnippetIDs: []string{mine.ID},
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.CreateShowcase(ctx, sc))

	listed, err := st.ListUserShowcases(ctx, owner)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, st.DeleteShowcase(ctx, sc.ID))
	listed, err = st.ListUserShowcases(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestReportQueue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		r := &datatypes.Report{
			ID:         uuid.NewString(),
			ReporterID: uuid.NewString(),
			TargetType: datatypes.TargetSnippet,
			TargetID:   uuid.NewString(),
			Reason:     fmt.Sprintf("reason %d", i),
			Status:     datatypes.ReportOpen,
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, st.CreateReport(ctx, r))
		ids = append(ids, r.ID)
		time.Sleep(time.Millisecond)
	}

	n, err := st.CountOpenReports(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	open, _, err := st.ListOpenReports(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, open, 3)
	require.Equal(t, ids[2], open[0].ID, "newest first")

	moderator := uuid.NewString()
	resolved, err := st.ResolveReport(ctx, ids[2], func(r *datatypes.Report) error {
		r.Status = datatypes.ReportResolved
		r.Action = datatypes.ActionDismissed
		r.ResolvedBy = moderator
		r.ResolvedAt = time.Now().UTC()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, datatypes.ReportResolved, resolved.Status)

	// Resolving twice is rejected.
	_, err = st.ResolveReport(ctx, ids[2], func(r *datatypes.Report) error { return nil })
	require.ErrorIs(t, err, ErrConflict)

	n, err = st.CountOpenReports(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestReportPagination(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, st.CreateReport(ctx, &datatypes.Report{
			ID:         uuid.NewString(),
			ReporterID: datatypes.SystemReporter,
			TargetType: datatypes.TargetSnippet,
			TargetID:   uuid.NewString(),
			Reason:     "secret detected",
			Status:     datatypes.ReportOpen,
			CreatedAt:  time.Now().UTC(),
		}))
		time.Sleep(time.Millisecond)
	}

	page1, cursor, err := st.ListOpenReports(ctx, "", 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotEmpty(t, cursor)

	page2, cursor2, err := st.ListOpenReports(ctx, cursor, 3)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Empty(t, cursor2)
}
