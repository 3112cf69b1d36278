// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/observability"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/feed"
	"github.com/snippetia/snippetia/services/monetize"
)

// Subscribe charges the caller and creates a paid channel membership.
// A declined card returns 402 with no subscription created.
func Subscribe(st *store.Store, svc *monetize.Service, hub feed.Notify) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		ch, err := st.GetChannelBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		sub, err := svc.Subscribe(c.Request.Context(), ch.ID, info.UserID, req.Tier)
		if err != nil {
			observability.ObserveCharge(chargeOutcome(err))
			writeError(c, err)
			return
		}
		observability.ObserveCharge("settled")

		hub.Publish(feed.Event{
			Type:   feed.EventChannelSubscribed,
			Actor:  info.UserID,
			Target: ch.ID,
		})
		slog.Info("subscription created",
			"sub_id", sub.ID, "channel_id", ch.ID, "user_id", info.UserID, "tier", sub.Tier)
		c.JSON(http.StatusCreated, sub)
	}
}

// ChangeSubscriptionTier upgrades or downgrades a subscription.
func ChangeSubscriptionTier(svc *monetize.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		info := middleware.GetAuthInfo(c)
		sub, err := svc.ChangeTier(c.Request.Context(), c.Param("id"), info.UserID, req.Tier)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}

// CancelSubscription cancels a subscription; access continues until
// the paid period ends.
func CancelSubscription(svc *monetize.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		sub, err := svc.Cancel(c.Request.Context(), c.Param("id"), info.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}

// ListMySubscriptions returns the caller's subscriptions.
func ListMySubscriptions(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		subs, err := st.ListUserSubscriptions(c.Request.Context(), info.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
	}
}

// ListChannelSubscribers returns a channel's subscriptions with the
// owner's revenue split. Channel owner only.
func ListChannelSubscribers(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, err := st.GetChannelBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, err)
			return
		}
		info := middleware.GetAuthInfo(c)
		if ch.OwnerID != info.UserID && !info.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}

		subs, err := st.ListChannelSubscriptions(c.Request.Context(), ch.ID)
		if err != nil {
			writeError(c, err)
			return
		}

		var totalCents int64
		now := nowUTC()
		for _, sub := range subs {
			if sub.Active(now) {
				totalCents += sub.PriceCents
			}
		}
		platformCents, ownerCents := monetize.Split(totalCents)

		c.JSON(http.StatusOK, gin.H{
			"subscriptions":  subs,
			"cycle_cents":    totalCents,
			"owner_cents":    ownerCents,
			"platform_cents": platformCents,
		})
	}
}

func chargeOutcome(err error) string {
	switch {
	case err == nil:
		return "settled"
	case isDeclined(err):
		return "declined"
	default:
		return "error"
	}
}
