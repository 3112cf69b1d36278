// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"
	"math"
	"time"
)

// Key prefixes. Every record type gets its own prefix; secondary
// indexes carry the primary ID as value. IDs produced by pkg/validation
// and google/uuid never contain '/', so segment boundaries are
// unambiguous.
const (
	pfxUser         = "user/"    // user/<id> -> User
	pfxUsername     = "uname/"   // uname/<username> -> userID
	pfxSession      = "sess/"    // sess/<tokenHash> -> Session
	pfxSnippet      = "snip/"    // snip/<id> -> Snippet
	pfxVersion      = "sver/"    // sver/<snipID>/<%06d> -> SnippetVersion
	pfxSnippetOwner = "snipown/" // snipown/<ownerID>/<revTS>-<id> -> id
	pfxSnippetChan  = "snipchn/" // snipchn/<chanID>/<revTS>-<id> -> id
	pfxSnippetLang  = "sniplng/" // sniplng/<lang>/<revTS>-<id> -> id
	pfxSnippetTime  = "snipts/"  // snipts/<revTS>-<id> -> id
	pfxLike         = "slike/"   // slike/<snipID>/<userID>
	pfxStar         = "sstar/"   // sstar/<snipID>/<userID>
	pfxFollowers    = "ufol/"    // ufol/<followeeID>/<followerID>
	pfxFollowing    = "ufolg/"   // ufolg/<followerID>/<followeeID>
	pfxChanFollow   = "cfol/"    // cfol/<chanID>/<userID>
	pfxComment      = "com/"     // com/<snipID>/<seq> -> Comment
	pfxChannel      = "chan/"    // chan/<id> -> Channel
	pfxChannelSlug  = "cslug/"   // cslug/<slug> -> chanID
	pfxSub          = "sub/"     // sub/<id> -> Subscription
	pfxSubIndex     = "subix/"   // subix/<chanID>/<userID> -> subID
	pfxUserSubs     = "usub/"    // usub/<userID>/<subID> -> chanID
	pfxEvent        = "evt/"     // evt/<id> -> Event
	pfxEventChan    = "evtchn/"  // evtchn/<chanID>/<startTS>-<id> -> id
	pfxEventReg     = "ereg/"    // ereg/<eventID>/<userID>
	pfxShowcase     = "show/"    // show/<id> -> Showcase
	pfxShowOwner    = "showown/" // showown/<ownerID>/<id> -> id
	pfxReport       = "rep/"     // rep/<id> -> Report
	pfxReportOpen   = "repopen/" // repopen/<revTS>-<id> -> id
)

func userKey(id string) []byte           { return []byte(pfxUser + id) }
func usernameKey(name string) []byte     { return []byte(pfxUsername + name) }
func sessionKey(tokenHash string) []byte { return []byte(pfxSession + tokenHash) }
func snippetKey(id string) []byte        { return []byte(pfxSnippet + id) }
func channelKey(id string) []byte        { return []byte(pfxChannel + id) }
func channelSlugKey(slug string) []byte  { return []byte(pfxChannelSlug + slug) }
func subKey(id string) []byte            { return []byte(pfxSub + id) }
func eventKey(id string) []byte          { return []byte(pfxEvent + id) }
func showcaseKey(id string) []byte       { return []byte(pfxShowcase + id) }
func reportKey(id string) []byte         { return []byte(pfxReport + id) }

// versionKey encodes version numbers zero-padded so lexicographic key
// order matches numeric order. Six digits bound a snippet at 999999
// revisions, far beyond realistic use.
func versionKey(snippetID string, version int) []byte {
	return []byte(fmt.Sprintf("%s%s/%06d", pfxVersion, snippetID, version))
}

// revTS renders t as an inverted fixed-width nanosecond stamp:
// ascending key order yields newest-first iteration.
func revTS(t time.Time) string {
	return fmt.Sprintf("%020d", math.MaxInt64-t.UnixNano())
}

// timeIndexKey builds "<prefix><revTS(t)>-<id>" index entries.
func timeIndexKey(prefix string, t time.Time, id string) []byte {
	return []byte(prefix + revTS(t) + "-" + id)
}

// scopedIndexKey builds "<prefix><scope>/<revTS(t)>-<id>" index entries.
func scopedIndexKey(prefix, scope string, t time.Time, id string) []byte {
	return []byte(prefix + scope + "/" + revTS(t) + "-" + id)
}

// markKey builds "<prefix><parent>/<member>" membership keys for likes,
// stars, follows, and event registrations.
func markKey(prefix, parent, member string) []byte {
	return []byte(prefix + parent + "/" + member)
}
