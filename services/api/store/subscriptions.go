// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// CreateSubscription records a new paid membership. A user holds at
// most one subscription per channel; a live existing one maps to
// ErrConflict. An expired-canceled leftover is replaced.
func (s *Store) CreateSubscription(ctx context.Context, sub *datatypes.Subscription) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		have, err := exists(txn, channelKey(sub.ChannelID))
		if err != nil {
			return err
		}
		if !have {
			return ErrNotFound
		}
		ixKey := markKey(pfxSubIndex, sub.ChannelID, sub.UserID)
		existingID, err := getString(txn, ixKey)
		if err == nil {
			var existing datatypes.Subscription
			if err := getJSON(txn, subKey(existingID), &existing); err != nil {
				return err
			}
			if existing.Active(time.Now().UTC()) {
				return fmt.Errorf("already subscribed to channel %s: %w", sub.ChannelID, ErrConflict)
			}
			if err := txn.Delete(subKey(existingID)); err != nil {
				return err
			}
			if err := txn.Delete(markKey(pfxUserSubs, existing.UserID, existingID)); err != nil {
				return err
			}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := txn.Set(ixKey, []byte(sub.ID)); err != nil {
			return err
		}
		if err := txn.Set(markKey(pfxUserSubs, sub.UserID, sub.ID), []byte(sub.ChannelID)); err != nil {
			return err
		}
		return setJSON(txn, subKey(sub.ID), sub)
	})
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// GetSubscription looks a subscription up by ID.
func (s *Store) GetSubscription(ctx context.Context, id string) (*datatypes.Subscription, error) {
	var sub datatypes.Subscription
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, subKey(id), &sub)
	})
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return &sub, nil
}

// GetUserChannelSubscription resolves the subscription a user holds on
// a channel, if any.
func (s *Store) GetUserChannelSubscription(ctx context.Context, channelID, userID string) (*datatypes.Subscription, error) {
	var sub datatypes.Subscription
	err := s.view(ctx, func(txn *badger.Txn) error {
		id, err := getString(txn, markKey(pfxSubIndex, channelID, userID))
		if err != nil {
			return err
		}
		return getJSON(txn, subKey(id), &sub)
	})
	if err != nil {
		return nil, fmt.Errorf("get subscription for channel %s: %w", channelID, err)
	}
	return &sub, nil
}

// UpdateSubscription applies fn to the current record and writes the
// result. Used for tier changes, renewals, and cancellation.
func (s *Store) UpdateSubscription(ctx context.Context, id string, fn func(sub *datatypes.Subscription) error) (*datatypes.Subscription, error) {
	var updated datatypes.Subscription
	err := s.update(ctx, func(txn *badger.Txn) error {
		var sub datatypes.Subscription
		if err := getJSON(txn, subKey(id), &sub); err != nil {
			return err
		}
		if err := fn(&sub); err != nil {
			return err
		}
		updated = sub
		return setJSON(txn, subKey(id), &sub)
	})
	if err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", id, err)
	}
	return &updated, nil
}

// DeleteSubscription removes a subscription and its indexes. Used when
// a canceled subscription's paid period lapses.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		var sub datatypes.Subscription
		if err := getJSON(txn, subKey(id), &sub); err != nil {
			return err
		}
		if err := txn.Delete(markKey(pfxSubIndex, sub.ChannelID, sub.UserID)); err != nil {
			return err
		}
		if err := txn.Delete(markKey(pfxUserSubs, sub.UserID, id)); err != nil {
			return err
		}
		return txn.Delete(subKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}
	return nil
}

// ListChannelSubscriptions returns every subscription attached to a
// channel. Channels are expected to stay well under memory-relevant
// subscriber counts; the renewal sweep consumes this whole.
func (s *Store) ListChannelSubscriptions(ctx context.Context, channelID string) ([]*datatypes.Subscription, error) {
	var subs []*datatypes.Subscription
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(pfxSubIndex + channelID + "/")})
		defer it.Close()

		var ids []string
		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ids = append(ids, string(val))
		}
		for _, id := range ids {
			var sub datatypes.Subscription
			if err := getJSON(txn, subKey(id), &sub); err != nil {
				return err
			}
			subs = append(subs, &sub)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for channel %s: %w", channelID, err)
	}
	return subs, nil
}

// ListUserSubscriptions returns every subscription a user holds.
func (s *Store) ListUserSubscriptions(ctx context.Context, userID string) ([]*datatypes.Subscription, error) {
	prefix := pfxUserSubs + userID + "/"
	var subs []*datatypes.Subscription
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix), PrefetchValues: false})
		defer it.Close()

		var ids []string
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		for _, id := range ids {
			var sub datatypes.Subscription
			if err := getJSON(txn, subKey(id), &sub); err != nil {
				return err
			}
			subs = append(subs, &sub)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}

// ListDueSubscriptions returns active subscriptions whose renewal fell
// at or before now. The renewal scheduler scans the whole sub space;
// subscriptions are low-cardinality relative to snippets.
func (s *Store) ListDueSubscriptions(ctx context.Context, now time.Time) ([]*datatypes.Subscription, error) {
	var due []*datatypes.Subscription
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(pfxSub)})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var sub datatypes.Subscription
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalInto(val, &sub)
			}); err != nil {
				return err
			}
			if sub.Status == datatypes.SubStatusActive && !sub.RenewsAt.After(now) {
				due = append(due, &sub)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	return due, nil
}
