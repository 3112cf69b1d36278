// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package feed fans out activity events to websocket clients.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event types carried on the feed.
const (
	EventSnippetCreated    = "snippet.created"
	EventSnippetLiked      = "snippet.liked"
	EventSnippetStarred    = "snippet.starred"
	EventCommentAdded      = "comment.added"
	EventUserFollowed      = "user.followed"
	EventChannelSubscribed = "channel.subscribed"
	EventEventScheduled    = "event.scheduled"
)

// Event is one activity frame sent to feed clients.
type Event struct {
	Type   string    `json:"type"`
	Actor  string    `json:"actor"`
	Target string    `json:"target"`
	At     time.Time `json:"at"`
}

// clientBuffer is the per-client send queue depth. A client that falls
// this far behind is dropped instead of blocking the hub.
const clientBuffer = 64

type client struct {
	id   string
	send chan Event
}

// Hub fans out events to every connected client. Publish never blocks
// on a slow consumer.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger

	// onCountChange reports the connection count, for metrics.
	onCountChange func(n int)
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// OnCountChange registers a callback invoked with the connection count
// after every register or unregister.
func (h *Hub) OnCountChange(fn func(n int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCountChange = fn
}

// Register adds a client and returns its receive channel plus an
// unregister func. The channel is closed on unregister.
func (h *Hub) Register(id string) (<-chan Event, func()) {
	c := &client{id: id, send: make(chan Event, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	fn := h.onCountChange
	h.mu.Unlock()

	if fn != nil {
		fn(n)
	}

	var once sync.Once
	unregister := func() {
		once.Do(func() { h.drop(c, "") })
	}
	return c.send, unregister
}

// Publish sends the event to every connected client. Clients whose
// buffers are full are disconnected.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c, "send buffer full")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c, "hub shutting down")
	}
}

func (h *Hub) drop(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	fn := h.onCountChange
	h.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)
	if fn != nil {
		fn(n)
	}
	if reason != "" && h.logger != nil {
		h.logger.Info("feed client dropped",
			slog.String("client_id", c.id),
			slog.String("reason", reason))
	}
}

// Notify is the narrow publishing surface handed to other services.
type Notify interface {
	Publish(ev Event)
}

// Nop is a Notify that discards events, for tests and the CLI paths
// that run without a feed.
type Nop struct{}

func (Nop) Publish(Event) {}

var _ Notify = (*Hub)(nil)
var _ Notify = Nop{}

// Run keeps the hub alive until the context is done, then closes all
// connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}
