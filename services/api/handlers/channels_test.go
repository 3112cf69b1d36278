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
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// createChannel makes a channel through the API and returns it.
func (e *testEnv) createChannel(t *testing.T, token, name string) datatypes.Channel {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/channels", token, datatypes.CreateChannelRequest{
		Name:        name,
		Description: "test channel",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[datatypes.Channel](t, w)
}

func TestChannelLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "alice")

	ch := env.createChannel(t, token, "Go Tips")
	require.Equal(t, "go-tips", ch.Slug)
	require.Equal(t, userID, ch.OwnerID)

	w := env.do(t, http.MethodGet, "/v1/channels/go-tips", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	desc := "all things Go"
	w = env.do(t, http.MethodPut, "/v1/channels/go-tips", token,
		datatypes.UpdateChannelRequest{Description: &desc})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, desc, decode[datatypes.Channel](t, w).Description)

	w = env.do(t, http.MethodDelete, "/v1/channels/go-tips", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/v1/channels/go-tips", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicateChannelSlugConflicts(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "alice")
	env.createChannel(t, token, "Go Tips")

	w := env.do(t, http.MethodPost, "/v1/channels", token, datatypes.CreateChannelRequest{
		Name: "Go Tips",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestChannelDeleteDetachesSnippets(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "alice")
	ch := env.createChannel(t, token, "Go Tips")

	w := env.do(t, http.MethodPost, "/v1/snippets", token, datatypes.CreateSnippetRequest{
		Title:     "In Channel",
		Language:  "go",
		Content:   "package ch\n",
		ChannelID: ch.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snip := decode[datatypes.SnippetResponse](t, w).Snippet

	w = env.do(t, http.MethodDelete, "/v1/channels/"+ch.Slug, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The snippet survives without its channel.
	w = env.do(t, http.MethodGet, "/v1/snippets/"+snip.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[datatypes.SnippetResponse](t, w).Snippet.ChannelID)
}

func TestSubscribeAndBilling(t *testing.T) {
	env := newTestEnv(t)
	aliceToken, _ := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")
	ch := env.createChannel(t, aliceToken, "Premium Go")

	w := env.do(t, http.MethodPost, "/v1/channels/"+ch.Slug+"/subscribe", bobToken,
		datatypes.SubscribeRequest{Tier: datatypes.TierSupporter})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sub := decode[datatypes.Subscription](t, w)
	require.Equal(t, datatypes.TierSupporter, sub.Tier)
	require.Equal(t, int64(500), sub.PriceCents)
	require.Len(t, env.gateway.Receipts(), 1)

	// Subscribers can now publish into the channel.
	w = env.do(t, http.MethodPost, "/v1/snippets", bobToken, datatypes.CreateSnippetRequest{
		Title:     "Member Post",
		Language:  "go",
		Content:   "package member\n",
		ChannelID: ch.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The owner sees the revenue split.
	w = env.do(t, http.MethodGet, "/v1/channels/"+ch.Slug+"/subscribers", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[struct {
		CycleCents    int64 `json:"cycle_cents"`
		OwnerCents    int64 `json:"owner_cents"`
		PlatformCents int64 `json:"platform_cents"`
	}](t, w)
	require.Equal(t, int64(500), summary.CycleCents)
	require.Equal(t, summary.CycleCents, summary.OwnerCents+summary.PlatformCents)
}

func TestSubscribeDeclinedCardReturns402(t *testing.T) {
	env := newTestEnv(t)
	aliceToken, _ := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")
	ch := env.createChannel(t, aliceToken, "Premium Go")

	env.gateway.Decline(true)
	w := env.do(t, http.MethodPost, "/v1/channels/"+ch.Slug+"/subscribe", bobToken,
		datatypes.SubscribeRequest{Tier: datatypes.TierPro})
	require.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestOwnerCannotSubscribeToOwnChannel(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "alice")
	ch := env.createChannel(t, token, "Premium Go")

	w := env.do(t, http.MethodPost, "/v1/channels/"+ch.Slug+"/subscribe", token,
		datatypes.SubscribeRequest{Tier: datatypes.TierSupporter})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSubscriptionCancel(t *testing.T) {
	env := newTestEnv(t)
	aliceToken, _ := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")
	ch := env.createChannel(t, aliceToken, "Premium Go")

	w := env.do(t, http.MethodPost, "/v1/channels/"+ch.Slug+"/subscribe", bobToken,
		datatypes.SubscribeRequest{Tier: datatypes.TierSupporter})
	require.Equal(t, http.StatusCreated, w.Code)
	sub := decode[datatypes.Subscription](t, w)

	w = env.do(t, http.MethodDelete, "/v1/subscriptions/"+sub.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	canceled := decode[datatypes.Subscription](t, w)
	require.Equal(t, datatypes.SubStatusCanceled, canceled.Status)

	w = env.do(t, http.MethodGet, "/v1/me/subscriptions", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEventCapacity(t *testing.T) {
	env := newTestEnv(t)
	hostToken, _ := env.register(t, "host")
	guestToken, _ := env.register(t, "guest")
	lateToken, _ := env.register(t, "latecomer")
	ch := env.createChannel(t, hostToken, "Meetups")

	starts := time.Now().Add(24 * time.Hour).UTC()
	w := env.do(t, http.MethodPost, "/v1/channels/"+ch.Slug+"/events", hostToken,
		datatypes.CreateEventRequest{
			Title:    "Tiny Workshop",
			StartsAt: starts,
			EndsAt:   starts.Add(time.Hour),
			Capacity: 1,
		})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ev := decode[datatypes.Event](t, w)

	w = env.do(t, http.MethodPost, "/v1/events/"+ev.ID+"/register", guestToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Full event turns the next registration away.
	w = env.do(t, http.MethodPost, "/v1/events/"+ev.ID+"/register", lateToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// Freeing a spot reopens it.
	w = env.do(t, http.MethodDelete, "/v1/events/"+ev.ID+"/register", guestToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/v1/events/"+ev.ID+"/register", lateToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEventCancelHostOnly(t *testing.T) {
	env := newTestEnv(t)
	hostToken, _ := env.register(t, "host")
	otherToken, _ := env.register(t, "other")
	ch := env.createChannel(t, hostToken, "Meetups")

	starts := time.Now().Add(24 * time.Hour).UTC()
	w := env.do(t, http.MethodPost, "/v1/channels/"+ch.Slug+"/events", hostToken,
		datatypes.CreateEventRequest{
			Title:    "Workshop",
			StartsAt: starts,
			EndsAt:   starts.Add(time.Hour),
		})
	require.Equal(t, http.StatusCreated, w.Code)
	ev := decode[datatypes.Event](t, w)

	w = env.do(t, http.MethodDelete, "/v1/events/"+ev.ID, otherToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/events/"+ev.ID, hostToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUpcomingEventFilter(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "host")
	ch := env.createChannel(t, token, "Meetups")

	past := time.Now().Add(-48 * time.Hour).UTC()
	future := time.Now().Add(48 * time.Hour).UTC()
	for _, start := range []time.Time{past, future} {
		w := env.do(t, http.MethodPost, "/v1/channels/"+ch.Slug+"/events", token,
			datatypes.CreateEventRequest{
				Title:    "Session",
				StartsAt: start,
				EndsAt:   start.Add(time.Hour),
			})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodGet, "/v1/channels/"+ch.Slug+"/events?upcoming=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[struct {
		Events []datatypes.Event `json:"events"`
	}](t, w)
	require.Len(t, events.Events, 1)
	require.True(t, events.Events[0].StartsAt.After(time.Now()))
}
