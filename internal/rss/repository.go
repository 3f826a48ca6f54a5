// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/northbound/triangle/internal/dbmanager"
)

// Repository is the typed gateway onto rss_feeds and rss_articles, grounded
// on documents.Repository's shape (handle + typed row + SQL per method)
// generalized to the feed/article tables.
type Repository struct {
	db *dbmanager.Manager
}

func NewRepository(db *dbmanager.Manager) *Repository {
	return &Repository{db: db}
}

func adminRLS(userID *string) *dbmanager.RLSContext {
	role := "admin"
	if userID != nil {
		role = "member"
	}
	return &dbmanager.RLSContext{UserID: userID, Role: role}
}

// CreateFeed inserts f, generating its id as hash(url[+user]) per spec
// §3.1. Creation side-effects (the immediate force-poll) are the caller's
// responsibility (see Scheduler.CreateFeed).
func (r *Repository) CreateFeed(ctx context.Context, f Feed) (*Feed, error) {
	if f.ID == "" {
		f.ID = FeedID(f.URL, f.UserID)
	}
	now := time.Now().UTC()
	const sql = `
		INSERT INTO rss_feeds (id, url, display_name, category, tags, check_interval_seconds, user_id, is_polling, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,false,$8)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at
		RETURNING id`
	interval := int64(f.CheckInterval / time.Second)
	_, err := r.db.FetchOne(ctx, sql, []any{f.ID, f.URL, f.DisplayName, derefOrNil(f.Category), tagsJSON(f.Tags), interval, derefOrNil(f.UserID), now}, adminRLS(f.UserID))
	if err != nil {
		return nil, fmt.Errorf("create feed: %w", err)
	}
	f.UpdatedAt = now
	return &f, nil
}

// EligibleFeeds implements spec §4.9's eligibility query: last_check is
// null or stale past check_interval, and not currently polling. Ordered
// last_check ASC NULLS FIRST, limited to 10, scoped to one user or global.
func (r *Repository) EligibleFeeds(ctx context.Context, userID *string) ([]*Feed, error) {
	const sql = `
		SELECT id, url, display_name, category, tags, check_interval_seconds, last_check, user_id, is_polling, updated_at
		FROM rss_feeds
		WHERE user_id IS NOT DISTINCT FROM $1
		AND (last_check IS NULL OR last_check + (check_interval_seconds * interval '1 second') < now())
		AND (is_polling IS NULL OR is_polling = false)
		ORDER BY last_check ASC NULLS FIRST
		LIMIT 10`
	rows, err := r.db.FetchAll(ctx, sql, []any{derefOrNil(userID)}, adminRLS(userID))
	if err != nil {
		return nil, fmt.Errorf("eligible feeds: %w", err)
	}
	return feedsFromRows(rows)
}

// ClaimPoll performs the compare-and-set entry half of invariant I6: it
// sets is_polling = true only if it currently reads false (or null), so at
// most one caller's UPDATE affects a row.
func (r *Repository) ClaimPoll(ctx context.Context, feedID string, userID *string) (bool, error) {
	const sql = `
		UPDATE rss_feeds SET is_polling = true, updated_at = now()
		WHERE id = $1 AND (is_polling IS NULL OR is_polling = false)
		RETURNING id`
	row, err := r.db.FetchOne(ctx, sql, []any{feedID}, adminRLS(userID))
	if err != nil {
		return false, fmt.Errorf("claim poll: %w", err)
	}
	return row != nil, nil
}

// ReleasePoll is the guaranteed-on-every-exit-path release half of I6: it
// clears is_polling and, on a successful poll, advances last_check so the
// feed becomes eligible again only after its interval elapses.
func (r *Repository) ReleasePoll(ctx context.Context, feedID string, userID *string, advanceLastCheck bool) error {
	sql := `UPDATE rss_feeds SET is_polling = false, updated_at = now() WHERE id = $1`
	if advanceLastCheck {
		sql = `UPDATE rss_feeds SET is_polling = false, last_check = now(), updated_at = now() WHERE id = $1`
	}
	return r.db.Exec(ctx, sql, []any{feedID}, adminRLS(userID))
}

// ResetStuckPolls implements the 30-minute stuck-feed cleanup sweep: any
// feed still is_polling=true whose updated_at predates the threshold is
// reset to false, so a crashed poller never wedges a feed permanently.
func (r *Repository) ResetStuckPolls(ctx context.Context) (int64, error) {
	const sql = `
		UPDATE rss_feeds SET is_polling = false, updated_at = now()
		WHERE is_polling = true AND updated_at < now() - $1::interval
		RETURNING id`
	rows, err := r.db.FetchAll(ctx, sql, []any{fmt.Sprintf("%d seconds", int64(stuckPollThreshold/time.Second))}, nil)
	if err != nil {
		return 0, fmt.Errorf("reset stuck polls: %w", err)
	}
	return int64(len(rows)), nil
}

// SaveArticle inserts a new article, skipping duplicates by
// (content_hash, feed_id) OR (link, feed_id) per spec §4.9. Returns
// (nil, nil) when the article is a duplicate rather than an error, mirroring
// documents.Repository.FindByHash's dedup-is-not-an-error contract.
func (r *Repository) SaveArticle(ctx context.Context, a Article) (*Article, error) {
	existing, err := r.findDuplicateArticle(ctx, a.FeedID, a.ContentHash, a.Link)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	const sql = `
		INSERT INTO rss_articles (id, feed_id, title, description, full_text, full_html, images, link, published_at, is_processed, is_read, content_hash, document_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO NOTHING`
	err = r.db.Exec(ctx, sql, []any{
		a.ID, a.FeedID, a.Title, a.Description, derefOrNil(a.FullText), derefOrNil(a.FullHTML),
		tagsJSON(a.Images), a.Link, a.Published, a.IsProcessed, a.IsRead, a.ContentHash, derefOrNil(a.DocumentID),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("save article: %w", err)
	}
	return &a, nil
}

func (r *Repository) findDuplicateArticle(ctx context.Context, feedID, contentHash, link string) (*Article, error) {
	const sql = `
		SELECT id FROM rss_articles
		WHERE feed_id = $1 AND (content_hash = $2 OR link = $3)
		LIMIT 1`
	row, err := r.db.FetchOne(ctx, sql, []any{feedID, contentHash, link}, nil)
	if err != nil {
		return nil, fmt.Errorf("find duplicate article: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	id, _ := row["id"].(string)
	return &Article{ID: id}, nil
}

// MarkProcessed flips is_processed once a later worker has extracted full
// content via the crawler, and records the materialized document's id.
func (r *Repository) MarkProcessed(ctx context.Context, articleID string, fullText, fullHTML string, images []string, documentID string) error {
	const sql = `
		UPDATE rss_articles SET is_processed = true, full_text = $2, full_html = $3, images = $4, document_id = $5
		WHERE id = $1`
	return r.db.Exec(ctx, sql, []any{articleID, fullText, fullHTML, tagsJSON(images), documentID}, nil)
}

// PurgeOlderThan deletes rss_articles (and, transitively, derived
// news_article rows via FK cascade) older than cutoff, per spec §4.9's
// retention purge. It returns the document ids of purged articles that had
// been materialized, so the caller can also remove their on-disk files and
// metadata rows.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	const sql = `DELETE FROM rss_articles WHERE published_at IS NOT NULL AND published_at < $1 RETURNING document_id`
	rows, err := r.db.FetchAll(ctx, sql, []any{cutoff}, nil)
	if err != nil {
		return nil, fmt.Errorf("purge rss articles: %w", err)
	}
	var docIDs []string
	for _, row := range rows {
		if id, ok := row["document_id"].(string); ok && id != "" {
			docIDs = append(docIDs, id)
		}
	}
	return docIDs, nil
}

func feedsFromRows(rows []dbmanager.Row) ([]*Feed, error) {
	out := make([]*Feed, 0, len(rows))
	for _, row := range rows {
		out = append(out, feedFromRow(row))
	}
	return out, nil
}

func feedFromRow(row dbmanager.Row) *Feed {
	f := &Feed{
		ID:          stringField(row, "id"),
		URL:         stringField(row, "url"),
		DisplayName: stringField(row, "display_name"),
	}
	if v, ok := row["category"].(string); ok && v != "" {
		f.Category = &v
	}
	if v, ok := row["user_id"].(string); ok && v != "" {
		f.UserID = &v
	}
	if v, ok := row["check_interval_seconds"].(int64); ok {
		f.CheckInterval = time.Duration(v) * time.Second
	}
	if v, ok := row["is_polling"].(bool); ok {
		f.IsPolling = v
	}
	return f
}

func stringField(row dbmanager.Row, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func tagsJSON(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
