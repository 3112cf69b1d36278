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
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// eventChanKey orders a channel's events by start time, soonest first.
func eventChanKey(channelID string, startsAt time.Time, eventID string) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d-%s", pfxEventChan, channelID, startsAt.UnixNano(), eventID))
}

// CreateEvent persists an event and its channel schedule index.
func (s *Store) CreateEvent(ctx context.Context, ev *datatypes.Event) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		have, err := exists(txn, channelKey(ev.ChannelID))
		if err != nil {
			return err
		}
		if !have {
			return ErrNotFound
		}
		if err := txn.Set(eventChanKey(ev.ChannelID, ev.StartsAt, ev.ID), []byte(ev.ID)); err != nil {
			return err
		}
		return setJSON(txn, eventKey(ev.ID), ev)
	})
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetEvent looks an event up by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (*datatypes.Event, error) {
	var ev datatypes.Event
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, eventKey(id), &ev)
	})
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return &ev, nil
}

// RegisterForEvent adds a user to an event's attendee set, enforcing
// capacity in the same transaction. A full event maps to ErrCapacity,
// a duplicate registration is a no-op.
func (s *Store) RegisterForEvent(ctx context.Context, eventID, userID string) (bool, error) {
	var changed bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = false
		var ev datatypes.Event
		if err := getJSON(txn, eventKey(eventID), &ev); err != nil {
			return err
		}
		key := markKey(pfxEventReg, eventID, userID)
		have, err := exists(txn, key)
		if err != nil {
			return err
		}
		if have {
			return nil
		}
		if ev.Capacity > 0 && ev.Attendees >= int64(ev.Capacity) {
			return fmt.Errorf("event %s full: %w", eventID, ErrCapacity)
		}
		changed = true

		if err := txn.Set(key, []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
			return err
		}
		ev.Attendees++
		return setJSON(txn, eventKey(eventID), &ev)
	})
	if err != nil {
		return false, fmt.Errorf("register for event %s: %w", eventID, err)
	}
	return changed, nil
}

// UnregisterFromEvent removes a registration. Absent marks are a no-op.
func (s *Store) UnregisterFromEvent(ctx context.Context, eventID, userID string) (bool, error) {
	var changed bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = false
		key := markKey(pfxEventReg, eventID, userID)
		have, err := exists(txn, key)
		if err != nil {
			return err
		}
		if !have {
			return nil
		}
		changed = true

		if err := txn.Delete(key); err != nil {
			return err
		}
		var ev datatypes.Event
		if err := getJSON(txn, eventKey(eventID), &ev); err != nil {
			return err
		}
		ev.Attendees--
		return setJSON(txn, eventKey(eventID), &ev)
	})
	if err != nil {
		return false, fmt.Errorf("unregister from event %s: %w", eventID, err)
	}
	return changed, nil
}

// ListEventAttendees returns the user IDs registered for an event.
func (s *Store) ListEventAttendees(ctx context.Context, eventID string) ([]string, error) {
	return s.listMarkMembers(ctx, pfxEventReg, eventID)
}

// ListChannelEvents returns a channel's events soonest first. When
// upcomingOnly is set, events that already ended are skipped.
func (s *Store) ListChannelEvents(ctx context.Context, channelID string, upcomingOnly bool, now time.Time) ([]*datatypes.Event, error) {
	prefix := pfxEventChan + channelID + "/"
	var events []*datatypes.Event
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix), PrefetchValues: false})
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
			var ev datatypes.Event
			if err := getJSON(txn, eventKey(id), &ev); err != nil {
				return err
			}
			if upcomingOnly && ev.EndsAt.Before(now) {
				continue
			}
			events = append(events, &ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events for channel %s: %w", channelID, err)
	}
	return events, nil
}

// DeleteEvent removes an event, its schedule index entry, and its
// registrations.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		var ev datatypes.Event
		if err := getJSON(txn, eventKey(id), &ev); err != nil {
			return err
		}
		if err := txn.Delete(eventChanKey(ev.ChannelID, ev.StartsAt, ev.ID)); err != nil {
			return err
		}
		if err := deletePrefix(txn, []byte(pfxEventReg+id+"/")); err != nil {
			return err
		}
		return txn.Delete(eventKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	return nil
}
