// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"crypto/sha256"
	"encoding/hex"
)

// FeedID derives a feed's id deterministically from its url (and, for a
// per-user feed, the owning user), per spec §3.1 ("id = hash(url
// [+ user])"). Deterministic ids let CreateFeed's ON CONFLICT collapse a
// duplicate feed-add to the existing row instead of creating a second one.
func FeedID(url string, userID *string) string {
	h := sha256.New()
	h.Write([]byte(url))
	if userID != nil {
		h.Write([]byte("|"))
		h.Write([]byte(*userID))
	}
	return hex.EncodeToString(h.Sum(nil))
}
