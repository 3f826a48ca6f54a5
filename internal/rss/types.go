// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package rss implements the feed poll scheduler and article ingest
// pipeline of spec §4.9: eligibility selection, the claim/release
// is_polling state machine (invariant I6), article dedup, and retention
// purge. Poll workers share the goroutine-pool shape of
// internal/tasks.Fabric and reuse internal/documents for vectorizing
// crawled article content.
package rss

import "time"

// Feed is a row of rss_feeds.
type Feed struct {
	ID            string
	URL           string
	DisplayName   string
	Category      *string
	Tags          []string
	CheckInterval time.Duration
	LastCheck     *time.Time
	UserID        *string // nil => global feed
	IsPolling     bool
	UpdatedAt     time.Time
}

// Article is a row of rss_articles.
type Article struct {
	ID          string
	FeedID      string
	Title       string
	Description string
	FullText    *string
	FullHTML    *string
	Images      []string
	Link        string
	Published   *time.Time
	IsProcessed bool
	IsRead      bool
	ContentHash string

	// DocumentID links to the materialized documents.Document row, once a
	// crawl has extracted full content and vectorized it (spec §4.9's
	// "materialize a Document for the RSS feed's associated folder").
	DocumentID *string
}

// RawArticle is a single RSS <item> parsed off the wire, before dedup.
type RawArticle struct {
	Title       string
	Description string
	Link        string
	Published   *time.Time
	Images      []string
}

// stuckPollThreshold is how long a feed may remain is_polling=true before
// the cleanup sweep resets it, per spec §4.9.
const stuckPollThreshold = 30 * time.Minute

// defaultRetention is the default RSS article/derived-news-article
// retention window, per spec §4.9.
const defaultRetention = 14 * 24 * time.Hour
