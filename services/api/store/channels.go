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

	"github.com/dgraph-io/badger/v4"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// CreateChannel persists a channel, claiming its slug. A taken slug
// maps to ErrConflict.
func (s *Store) CreateChannel(ctx context.Context, ch *datatypes.Channel) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		taken, err := exists(txn, channelSlugKey(ch.Slug))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("slug %q taken: %w", ch.Slug, ErrConflict)
		}
		if err := txn.Set(channelSlugKey(ch.Slug), []byte(ch.ID)); err != nil {
			return err
		}
		return setJSON(txn, channelKey(ch.ID), ch)
	})
	if err != nil {
		return fmt.Errorf("create channel %s: %w", ch.Slug, err)
	}
	return nil
}

// GetChannel looks a channel up by ID.
func (s *Store) GetChannel(ctx context.Context, id string) (*datatypes.Channel, error) {
	var ch datatypes.Channel
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, channelKey(id), &ch)
	})
	if err != nil {
		return nil, fmt.Errorf("get channel %s: %w", id, err)
	}
	return &ch, nil
}

// GetChannelBySlug resolves a slug through the cslug index.
func (s *Store) GetChannelBySlug(ctx context.Context, slug string) (*datatypes.Channel, error) {
	var ch datatypes.Channel
	err := s.view(ctx, func(txn *badger.Txn) error {
		id, err := getString(txn, channelSlugKey(strings.ToLower(slug)))
		if err != nil {
			return err
		}
		return getJSON(txn, channelKey(id), &ch)
	})
	if err != nil {
		return nil, fmt.Errorf("get channel by slug %s: %w", slug, err)
	}
	return &ch, nil
}

// UpdateChannel applies fn to the current record and writes the result.
// A slug change inside fn re-claims the index atomically.
func (s *Store) UpdateChannel(ctx context.Context, id string, fn func(ch *datatypes.Channel) error) (*datatypes.Channel, error) {
	var updated datatypes.Channel
	err := s.update(ctx, func(txn *badger.Txn) error {
		var ch datatypes.Channel
		if err := getJSON(txn, channelKey(id), &ch); err != nil {
			return err
		}
		oldSlug := ch.Slug
		if err := fn(&ch); err != nil {
			return err
		}
		if ch.Slug != oldSlug {
			taken, err := exists(txn, channelSlugKey(ch.Slug))
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("slug %q taken: %w", ch.Slug, ErrConflict)
			}
			if err := txn.Delete(channelSlugKey(oldSlug)); err != nil {
				return err
			}
			if err := txn.Set(channelSlugKey(ch.Slug), []byte(ch.ID)); err != nil {
				return err
			}
		}
		updated = ch
		return setJSON(txn, channelKey(id), &ch)
	})
	if err != nil {
		return nil, fmt.Errorf("update channel %s: %w", id, err)
	}
	return &updated, nil
}

// DeleteChannel removes a channel, its slug claim, its follow marks,
// and its snippet index. Snippets themselves survive with a cleared
// channel reference; callers handle that reassignment.
func (s *Store) DeleteChannel(ctx context.Context, id string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		var ch datatypes.Channel
		if err := getJSON(txn, channelKey(id), &ch); err != nil {
			return err
		}
		if err := txn.Delete(channelSlugKey(ch.Slug)); err != nil {
			return err
		}
		for _, prefix := range []string{
			pfxChanFollow + id + "/",
			pfxSnippetChan + id + "/",
			pfxEventChan + id + "/",
		} {
			if err := deletePrefix(txn, []byte(prefix)); err != nil {
				return err
			}
		}
		return txn.Delete(channelKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete channel %s: %w", id, err)
	}
	return nil
}

// ListChannels pages through channels by owner, or all channels when
// ownerID is empty. Ordered by channel ID.
func (s *Store) ListChannels(ctx context.Context, ownerID, cursor string, limit int) ([]*datatypes.Channel, string, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	var (
		channels []*datatypes.Channel
		next     string
	)
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:       []byte(pfxChannel),
			PrefetchSize: limit,
		})
		defer it.Close()

		start := []byte(pfxChannel + cursor)
		for it.Seek(start); it.Valid(); it.Next() {
			id := strings.TrimPrefix(string(it.Item().Key()), pfxChannel)
			if cursor != "" && id <= cursor {
				continue
			}
			var ch datatypes.Channel
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalInto(val, &ch)
			}); err != nil {
				return err
			}
			if ownerID != "" && ch.OwnerID != ownerID {
				continue
			}
			channels = append(channels, &ch)
			if len(channels) == limit {
				next = id
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("list channels: %w", err)
	}
	return channels, next, nil
}

// SlugAvailable reports whether a channel slug is unclaimed.
func (s *Store) SlugAvailable(ctx context.Context, slug string) (bool, error) {
	var free bool
	err := s.view(ctx, func(txn *badger.Txn) error {
		taken, err := exists(txn, channelSlugKey(strings.ToLower(slug)))
		if err != nil {
			return err
		}
		free = !taken
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return free, nil
}
