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

// Channel is a publication space owned by a user. Snippets and events
// can be published into a channel; followers and paying subscribers
// attach to it.
type Channel struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Followers   int64     `json:"followers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateChannelRequest is the body of POST /v1/channels.
type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=80"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// UpdateChannelRequest is the body of PATCH /v1/channels/:slug.
type UpdateChannelRequest struct {
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// Subscription tier names. Prices are defined in services/monetize.
const (
	TierFree      = "free"
	TierSupporter = "supporter"
	TierPro       = "pro"
)

// Subscription status values.
const (
	SubStatusActive   = "active"
	SubStatusCanceled = "canceled"
	SubStatusPastDue  = "past_due"
)

// Subscription is a paid membership of a user to a channel.
type Subscription struct {
	ID         string    `json:"id"`
	ChannelID  string    `json:"channel_id"`
	UserID     string    `json:"user_id"`
	Tier       string    `json:"tier"`
	PriceCents int64     `json:"price_cents"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	RenewsAt   time.Time `json:"renews_at"`
	CanceledAt time.Time `json:"canceled_at,omitempty"`
}

// Active reports whether the subscription entitles access at the given
// instant. Canceled subscriptions stay active until the paid period ends.
func (s *Subscription) Active(now time.Time) bool {
	switch s.Status {
	case SubStatusActive:
		return true
	case SubStatusCanceled:
		return now.Before(s.RenewsAt)
	default:
		return false
	}
}

// SubscribeRequest is the body of POST /v1/channels/:slug/subscribe.
type SubscribeRequest struct {
	Tier string `json:"tier" binding:"required,oneof=supporter pro"`
}

// Event is a scheduled community event hosted in a channel.
type Event struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	HostID      string    `json:"host_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	Attendees   int64     `json:"attendees"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateEventRequest is the body of POST /v1/channels/:slug/events.
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=1,max=140"`
	Description string    `json:"description" binding:"omitempty,max=4000"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required,gtfield=StartsAt"`
	Capacity    int       `json:"capacity" binding:"omitempty,min=1,max=100000"`
}
