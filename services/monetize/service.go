// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package monetize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/store"
)

// SubscriptionStore is the persistence surface Service needs.
// *store.Store satisfies it.
type SubscriptionStore interface {
	GetChannel(ctx context.Context, id string) (*datatypes.Channel, error)
	CreateSubscription(ctx context.Context, sub *datatypes.Subscription) error
	GetSubscription(ctx context.Context, id string) (*datatypes.Subscription, error)
	GetUserChannelSubscription(ctx context.Context, channelID, userID string) (*datatypes.Subscription, error)
	UpdateSubscription(ctx context.Context, id string, fn func(sub *datatypes.Subscription) error) (*datatypes.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	ListDueSubscriptions(ctx context.Context, now time.Time) ([]*datatypes.Subscription, error)
}

// Service implements paid channel memberships on top of the store and
// the payment gateway.
type Service struct {
	store   SubscriptionStore
	gateway Gateway
	logger  *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewService wires the monetization service.
func NewService(st SubscriptionStore, gw Gateway, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		gateway: gw,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe charges the user for the tier and creates the
// subscription. Channel owners cannot subscribe to their own channel.
func (s *Service) Subscribe(ctx context.Context, channelID, userID, tier string) (*datatypes.Subscription, error) {
	price, err := TierPrice(tier)
	if err != nil {
		return nil, err
	}
	if tier == datatypes.TierFree {
		return nil, errors.New("free tier needs no subscription; follow the channel instead")
	}

	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.OwnerID == userID {
		return nil, fmt.Errorf("cannot subscribe to your own channel: %w", store.ErrConflict)
	}

	now := s.now()
	sub := &datatypes.Subscription{
		ID:         uuid.NewString(),
		ChannelID:  channelID,
		UserID:     userID,
		Tier:       tier,
		PriceCents: price,
		Status:     datatypes.SubStatusActive,
		StartedAt:  now,
		RenewsAt:   now.AddDate(0, 0, CycleDays),
	}

	if _, err := s.charge(ctx, userID, price, fmt.Sprintf("%s subscription to %s", tier, ch.Slug)); err != nil {
		return nil, err
	}

	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		// The charge settled but the record failed; surface loudly so
		// operators reconcile instead of silently double charging on
		// retry.
		if s.logger != nil {
			s.logger.Error("subscription record failed after settled charge",
				slog.String("user_id", userID),
				slog.String("channel_id", channelID),
				slog.String("error", err.Error()))
		}
		return nil, err
	}
	return sub, nil
}

// ChangeTier moves a subscription between paid tiers. Upgrades charge
// the prorated difference now; downgrades take effect at renewal
// pricing with no refund.
func (s *Service) ChangeTier(ctx context.Context, subscriptionID, userID, newTier string) (*datatypes.Subscription, error) {
	newPrice, err := TierPrice(newTier)
	if err != nil {
		return nil, err
	}
	if newTier == datatypes.TierFree {
		return nil, errors.New("downgrade to free by canceling")
	}

	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, store.ErrNotFound
	}
	if sub.Tier == newTier {
		return sub, nil
	}
	if !sub.Active(s.now()) {
		return nil, fmt.Errorf("subscription not active: %w", store.ErrConflict)
	}

	now := s.now()
	due := Proration(sub.PriceCents, newPrice, now, sub.RenewsAt)
	if due > 0 {
		if _, err := s.charge(ctx, userID, due, fmt.Sprintf("upgrade to %s", newTier)); err != nil {
			return nil, err
		}
	}

	return s.store.UpdateSubscription(ctx, subscriptionID, func(rec *datatypes.Subscription) error {
		rec.Tier = newTier
		rec.PriceCents = newPrice
		return nil
	})
}

// Cancel marks a subscription canceled. Access continues until the end
// of the paid period; the lapsed record is cleared by the renewal
// sweep.
func (s *Service) Cancel(ctx context.Context, subscriptionID, userID string) (*datatypes.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, store.ErrNotFound
	}
	if sub.Status == datatypes.SubStatusCanceled {
		return sub, nil
	}

	now := s.now()
	return s.store.UpdateSubscription(ctx, subscriptionID, func(rec *datatypes.Subscription) error {
		rec.Status = datatypes.SubStatusCanceled
		rec.CanceledAt = now
		return nil
	})
}

// RenewDue charges every active subscription whose cycle lapsed. A
// declined renewal moves the subscription to past_due; a gateway
// outage leaves the record due for the next sweep. Returns how many
// renewals settled.
func (s *Service) RenewDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.ListDueSubscriptions(ctx, now)
	if err != nil {
		return 0, err
	}

	renewed := 0
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return renewed, err
		}

		_, err := s.charge(ctx, sub.UserID, sub.PriceCents, "subscription renewal")
		switch {
		case err == nil:
			_, err = s.store.UpdateSubscription(ctx, sub.ID, func(rec *datatypes.Subscription) error {
				rec.RenewsAt = rec.RenewsAt.AddDate(0, 0, CycleDays)
				rec.Status = datatypes.SubStatusActive
				return nil
			})
			if err == nil {
				renewed++
			}
		case errors.Is(err, ErrPaymentDeclined):
			_, uerr := s.store.UpdateSubscription(ctx, sub.ID, func(rec *datatypes.Subscription) error {
				rec.Status = datatypes.SubStatusPastDue
				return nil
			})
			if uerr != nil && s.logger != nil {
				s.logger.Error("mark past_due failed", slog.String("sub_id", sub.ID), slog.String("error", uerr.Error()))
			}
		default:
			// Gateway outage; leave the record due and retry on the
			// next sweep.
			if s.logger != nil {
				s.logger.Warn("renewal charge failed",
					slog.String("sub_id", sub.ID),
					slog.String("error", err.Error()))
			}
		}
	}

	return renewed, nil
}

// RunRenewals sweeps due subscriptions on the given interval until ctx
// is done.
func (s *Service) RunRenewals(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.RenewDue(ctx)
			if err != nil && s.logger != nil {
				s.logger.Error("renewal sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 && s.logger != nil {
				s.logger.Info("renewal sweep complete", slog.Int("renewed", n))
			}
		}
	}
}

// OwnerRevenue reports the owner and platform share of a charge.
func OwnerRevenue(totalCents int64) (ownerCents, platformCents int64) {
	platformCents, ownerCents = Split(totalCents)
	return ownerCents, platformCents
}

func (s *Service) charge(ctx context.Context, userID string, amountCents int64, description string) (*Receipt, error) {
	receipt, err := s.gateway.Charge(ctx, Charge{
		ID:          uuid.NewString(),
		UserID:      userID,
		AmountCents: amountCents,
		Currency:    "usd",
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
