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
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// Like marks a snippet as liked by a user. Returns true if the state
// changed; re-liking is a no-op. The counter on the snippet head is
// updated in the same transaction as the mark.
func (s *Store) Like(ctx context.Context, snippetID, userID string) (bool, error) {
	return s.setSnippetMark(ctx, pfxLike, snippetID, userID, true)
}

// Unlike removes a like mark. Removing an absent mark is a no-op.
func (s *Store) Unlike(ctx context.Context, snippetID, userID string) (bool, error) {
	return s.setSnippetMark(ctx, pfxLike, snippetID, userID, false)
}

// Star marks a snippet as starred by a user.
func (s *Store) Star(ctx context.Context, snippetID, userID string) (bool, error) {
	return s.setSnippetMark(ctx, pfxStar, snippetID, userID, true)
}

// Unstar removes a star mark.
func (s *Store) Unstar(ctx context.Context, snippetID, userID string) (bool, error) {
	return s.setSnippetMark(ctx, pfxStar, snippetID, userID, false)
}

// setSnippetMark toggles a like/star mark and keeps the snippet counter
// consistent with the mark set.
func (s *Store) setSnippetMark(ctx context.Context, prefix, snippetID, userID string, want bool) (bool, error) {
	var changed bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = false
		var snip datatypes.Snippet
		if err := getJSON(txn, snippetKey(snippetID), &snip); err != nil {
			return err
		}
		key := markKey(prefix, snippetID, userID)
		have, err := exists(txn, key)
		if err != nil {
			return err
		}
		if have == want {
			return nil
		}
		changed = true

		var delta int64
		if want {
			if err := txn.Set(key, []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
			delta = 1
		} else {
			if err := txn.Delete(key); err != nil {
				return err
			}
			delta = -1
		}
		switch prefix {
		case pfxLike:
			snip.Likes += delta
		case pfxStar:
			snip.Stars += delta
		}
		return setJSON(txn, snippetKey(snippetID), &snip)
	})
	if err != nil {
		return false, fmt.Errorf("mark snippet %s: %w", snippetID, err)
	}
	return changed, nil
}

// ListLikers returns the user IDs that liked a snippet.
func (s *Store) ListLikers(ctx context.Context, snippetID string) ([]string, error) {
	return s.listMarkMembers(ctx, pfxLike, snippetID)
}

// FollowUser records follower following followee. Self-follows are
// rejected. Both follower and followee counters update transactionally.
func (s *Store) FollowUser(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, fmt.Errorf("cannot follow yourself: %w", ErrConflict)
	}

	var changed bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = false
		var follower, followee datatypes.User
		if err := getJSON(txn, userKey(followerID), &follower); err != nil {
			return err
		}
		if err := getJSON(txn, userKey(followeeID), &followee); err != nil {
			return err
		}
		key := markKey(pfxFollowers, followeeID, followerID)
		have, err := exists(txn, key)
		if err != nil {
			return err
		}
		if have {
			return nil
		}
		changed = true

		now := []byte(time.Now().UTC().Format(time.RFC3339))
		if err := txn.Set(key, now); err != nil {
			return err
		}
		if err := txn.Set(markKey(pfxFollowing, followerID, followeeID), now); err != nil {
			return err
		}
		followee.Followers++
		follower.Following++
		if err := setJSON(txn, userKey(followeeID), &followee); err != nil {
			return err
		}
		return setJSON(txn, userKey(followerID), &follower)
	})
	if err != nil {
		return false, fmt.Errorf("follow user %s: %w", followeeID, err)
	}
	return changed, nil
}

// UnfollowUser removes a follow edge. Absent edges are a no-op.
func (s *Store) UnfollowUser(ctx context.Context, followerID, followeeID string) (bool, error) {
	var changed bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = false
		key := markKey(pfxFollowers, followeeID, followerID)
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
		if err := txn.Delete(markKey(pfxFollowing, followerID, followeeID)); err != nil {
			return err
		}
		var follower, followee datatypes.User
		if err := getJSON(txn, userKey(followerID), &follower); err != nil {
			return err
		}
		if err := getJSON(txn, userKey(followeeID), &followee); err != nil {
			return err
		}
		followee.Followers--
		follower.Following--
		if err := setJSON(txn, userKey(followeeID), &followee); err != nil {
			return err
		}
		return setJSON(txn, userKey(followerID), &follower)
	})
	if err != nil {
		return false, fmt.Errorf("unfollow user %s: %w", followeeID, err)
	}
	return changed, nil
}

// ListFollowers returns the user IDs following the given user.
func (s *Store) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	return s.listMarkMembers(ctx, pfxFollowers, userID)
}

// ListFollowing returns the user IDs the given user follows.
func (s *Store) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	return s.listMarkMembers(ctx, pfxFollowing, userID)
}

// FollowChannel records a user following a channel.
func (s *Store) FollowChannel(ctx context.Context, channelID, userID string) (bool, error) {
	return s.setChannelFollow(ctx, channelID, userID, true)
}

// UnfollowChannel removes a channel follow.
func (s *Store) UnfollowChannel(ctx context.Context, channelID, userID string) (bool, error) {
	return s.setChannelFollow(ctx, channelID, userID, false)
}

func (s *Store) setChannelFollow(ctx context.Context, channelID, userID string, want bool) (bool, error) {
	var changed bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = false
		var ch datatypes.Channel
		if err := getJSON(txn, channelKey(channelID), &ch); err != nil {
			return err
		}
		key := markKey(pfxChanFollow, channelID, userID)
		have, err := exists(txn, key)
		if err != nil {
			return err
		}
		if have == want {
			return nil
		}
		changed = true

		if want {
			if err := txn.Set(key, []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
			ch.Followers++
		} else {
			if err := txn.Delete(key); err != nil {
				return err
			}
			ch.Followers--
		}
		return setJSON(txn, channelKey(channelID), &ch)
	})
	if err != nil {
		return false, fmt.Errorf("follow channel %s: %w", channelID, err)
	}
	return changed, nil
}

// listMarkMembers lists the member segment of every mark key under
// "<prefix><parent>/".
func (s *Store) listMarkMembers(ctx context.Context, prefix, parent string) ([]string, error) {
	full := prefix + parent + "/"
	var members []string
	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(full)})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			members = append(members, strings.TrimPrefix(string(it.Item().Key()), full))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}
