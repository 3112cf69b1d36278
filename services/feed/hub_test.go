// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllClients(t *testing.T) {
	hub := NewHub(nil)
	a, closeA := hub.Register("a")
	b, closeB := hub.Register("b")
	defer closeA()
	defer closeB()

	hub.Publish(Event{Type: EventSnippetCreated, Actor: "alice", Target: "snip-1"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			require.Equal(t, EventSnippetCreated, ev.Type)
			require.Equal(t, "alice", ev.Actor)
			require.False(t, ev.At.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestSlowClientDropped(t *testing.T) {
	hub := NewHub(nil)
	slow, _ := hub.Register("slow")

	fast, closeFast := hub.Register("fast")
	defer closeFast()

	// Fill the slow client's buffer without draining it, then publish
	// one more event to trip the drop. The fast client is drained
	// after every publish and survives.
	for i := 0; i <= clientBuffer; i++ {
		hub.Publish(Event{Type: EventSnippetLiked, Actor: "bob", Target: "snip-2"})
		<-fast
	}

	require.Equal(t, 1, hub.ClientCount())

	// The slow client's channel is closed after its buffer drains.
	drained := 0
	for range slow {
		drained++
	}
	require.Equal(t, clientBuffer, drained)
}

func TestUnregisterIdempotent(t *testing.T) {
	hub := NewHub(nil)
	_, unregister := hub.Register("a")

	unregister()
	unregister()
	require.Zero(t, hub.ClientCount())
}

func TestCountCallback(t *testing.T) {
	hub := NewHub(nil)
	var counts []int
	hub.OnCountChange(func(n int) { counts = append(counts, n) })

	_, closeA := hub.Register("a")
	_, closeB := hub.Register("b")
	closeA()
	closeB()

	require.Equal(t, []int{1, 2, 1, 0}, counts)
}

func TestCloseDisconnectsEveryone(t *testing.T) {
	hub := NewHub(nil)
	a, _ := hub.Register("a")
	b, _ := hub.Register("b")

	hub.Close()
	require.Zero(t, hub.ClientCount())

	_, open := <-a
	require.False(t, open)
	_, open = <-b
	require.False(t, open)
}
