// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

func seedChannel(t *testing.T, st *Store, ownerID, slug string) *datatypes.Channel {
	t.Helper()
	ch := &datatypes.Channel{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      slug,
		Slug:      slug,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreateChannel(context.Background(), ch))
	return ch
}

func TestCreateChannelSlugUnique(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	owner := uuid.NewString()

	seedChannel(t, st, owner, "go-tips")

	err := st.CreateChannel(ctx, &datatypes.Channel{
		ID:      uuid.NewString(),
		OwnerID: uuid.NewString(),
		Name:    "Go Tips",
		Slug:    "go-tips",
	})
	require.ErrorIs(t, err, ErrConflict)

	got, err := st.GetChannelBySlug(ctx, "go-tips")
	require.NoError(t, err)
	require.Equal(t, owner, got.OwnerID)
}

func TestChannelFollowCounter(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ch := seedChannel(t, st, uuid.NewString(), "followed")
	user := uuid.NewString()

	changed, err := st.FollowChannel(ctx, ch.ID, user)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = st.FollowChannel(ctx, ch.ID, user)
	require.NoError(t, err)
	require.False(t, changed)

	got, err := st.GetChannel(ctx, ch.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Followers)

	_, err = st.UnfollowChannel(ctx, ch.ID, user)
	require.NoError(t, err)

	got, err = st.GetChannel(ctx, ch.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.Followers)
}

func TestDeleteChannel(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ch := seedChannel(t, st, uuid.NewString(), "doomed")

	_, err := st.FollowChannel(ctx, ch.ID, uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, st.DeleteChannel(ctx, ch.ID))

	_, err = st.GetChannel(ctx, ch.ID)
	require.ErrorIs(t, err, ErrNotFound)

	free, err := st.SlugAvailable(ctx, "doomed")
	require.NoError(t, err)
	require.True(t, free, "slug is released on delete")
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ch := seedChannel(t, st, uuid.NewString(), "paid")
	user := uuid.NewString()
	now := time.Now().UTC()

	sub := &datatypes.Subscription{
		ID:         uuid.NewString(),
		ChannelID:  ch.ID,
		UserID:     user,
		Tier:       datatypes.TierSupporter,
		PriceCents: 500,
		Status:     datatypes.SubStatusActive,
		StartedAt:  now,
		RenewsAt:   now.AddDate(0, 1, 0),
	}
	require.NoError(t, st.CreateSubscription(ctx, sub))

	// A second live subscription on the same channel is rejected.
	err := st.CreateSubscription(ctx, &datatypes.Subscription{
		ID:        uuid.NewString(),
		ChannelID: ch.ID,
		UserID:    user,
		Tier:      datatypes.TierPro,
		Status:    datatypes.SubStatusActive,
		RenewsAt:  now.AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, ErrConflict)

	got, err := st.GetUserChannelSubscription(ctx, ch.ID, user)
	require.NoError(t, err)
	require.Equal(t, sub.ID, got.ID)

	mine, err := st.ListUserSubscriptions(ctx, user)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	forChannel, err := st.ListChannelSubscriptions(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, forChannel, 1)

	require.NoError(t, st.DeleteSubscription(ctx, sub.ID))
	_, err = st.GetUserChannelSubscription(ctx, ch.ID, user)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSubscriptionMissingChannel(t *testing.T) {
	st := newTestStore(t)
	err := st.CreateSubscription(context.Background(), &datatypes.Subscription{
		ID:        uuid.NewString(),
		ChannelID: uuid.NewString(),
		UserID:    uuid.NewString(),
		Tier:      datatypes.TierSupporter,
		Status:    datatypes.SubStatusActive,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListDueSubscriptions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ch := seedChannel(t, st, uuid.NewString(), "renewals")
	now := time.Now().UTC()

	due := &datatypes.Subscription{
		ID:        uuid.NewString(),
		ChannelID: ch.ID,
		UserID:    uuid.NewString(),
		Tier:      datatypes.TierSupporter,
		Status:    datatypes.SubStatusActive,
		RenewsAt:  now.Add(-time.Hour),
	}
	notDue := &datatypes.Subscription{
		ID:        uuid.NewString(),
		ChannelID: ch.ID,
		UserID:    uuid.NewString(),
		Tier:      datatypes.TierPro,
		Status:    datatypes.SubStatusActive,
		RenewsAt:  now.AddDate(0, 1, 0),
	}
	require.NoError(t, st.CreateSubscription(ctx, due))
	require.NoError(t, st.CreateSubscription(ctx, notDue))

	got, err := st.ListDueSubscriptions(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, due.ID, got[0].ID)
}

func TestEventCapacity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ch := seedChannel(t, st, uuid.NewString(), "events")
	now := time.Now().UTC()

	ev := &datatypes.Event{
		ID:        uuid.NewString(),
		ChannelID: ch.ID,
		HostID:    ch.OwnerID,
		Title:     "meetup",
		StartsAt:  now.Add(time.Hour),
		EndsAt:    now.Add(2 * time.Hour),
		Capacity:  2,
		CreatedAt: now,
	}
	require.NoError(t, st.CreateEvent(ctx, ev))

	alice, bob := uuid.NewString(), uuid.NewString()
	_, err := st.RegisterForEvent(ctx, ev.ID, alice)
	require.NoError(t, err)
	_, err = st.RegisterForEvent(ctx, ev.ID, bob)
	require.NoError(t, err)

	// Duplicate registration does not consume capacity.
	changed, err := st.RegisterForEvent(ctx, ev.ID, alice)
	require.NoError(t, err)
	require.False(t, changed)

	_, err = st.RegisterForEvent(ctx, ev.ID, uuid.NewString())
	require.ErrorIs(t, err, ErrCapacity)

	// Unregistering frees a seat.
	_, err = st.UnregisterFromEvent(ctx, ev.ID, bob)
	require.NoError(t, err)
	_, err = st.RegisterForEvent(ctx, ev.ID, uuid.NewString())
	require.NoError(t, err)

	attendees, err := st.ListEventAttendees(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 2)
}

func TestListChannelEventsUpcoming(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ch := seedChannel(t, st, uuid.NewString(), "schedule")
	now := time.Now().UTC()

	past := &datatypes.Event{
		ID:        uuid.NewString(),
		ChannelID: ch.ID,
		Title:     "past",
		StartsAt:  now.Add(-3 * time.Hour),
		EndsAt:    now.Add(-2 * time.Hour),
	}
	future := &datatypes.Event{
		ID:        uuid.NewString(),
		ChannelID: ch.ID,
		Title:     "future",
		StartsAt:  now.Add(time.Hour),
		EndsAt:    now.Add(2 * time.Hour),
	}
	require.NoError(t, st.CreateEvent(ctx, past))
	require.NoError(t, st.CreateEvent(ctx, future))

	all, err := st.ListChannelEvents(ctx, ch.ID, false, now)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "past", all[0].Title, "soonest first")

	upcoming, err := st.ListChannelEvents(ctx, ch.ID, true, now)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, "future", upcoming[0].Title)
}
