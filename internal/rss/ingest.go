// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/northbound/triangle/internal/documents"
)

// rssImportCategory is the UI-level category forced onto RSS-materialized
// documents, per spec §4.9/§9's open-question resolution: this is display
// categorization, not a core invariant, so it's a plain constant rather
// than a new entry in documents.DocType's enum.
const rssImportCategory = "rss_import"

var whitespaceRun = regexp.MustCompile(`\s+`)

// contentHash normalizes whitespace and case before hashing so minor
// rendering differences between feed polls don't defeat dedup, per spec
// §4.9's "content_hash for dedup".
func contentHash(parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, "|"))
	normalized := whitespaceRun.ReplaceAllString(joined, " ")
	sum := sha256.Sum256([]byte(strings.TrimSpace(normalized)))
	return hex.EncodeToString(sum[:])
}

// Ingestor turns raw feed entries into persisted, deduped rss_articles
// rows and, once full content has been crawled, materializes them as
// documents so the same vectorization pipeline as any other upload runs
// over them (spec §4.9: "Vectorize the full content like any ingest").
type Ingestor struct {
	articles *Repository
	docs     *documents.Service
	docRepo  *documents.Repository
	http     *http.Client
	log      zerolog.Logger
}

func NewIngestor(articles *Repository, docs *documents.Service, docRepo *documents.Repository, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		articles: articles,
		docs:     docs,
		docRepo:  docRepo,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// SaveNewArticles persists every raw entry not already present by
// (content_hash, feed_id) OR (link, feed_id), returning the newly saved
// rows (duplicates are silently skipped, per spec §4.9).
func (ig *Ingestor) SaveNewArticles(ctx context.Context, feed *Feed, raw []RawArticle) ([]*Article, error) {
	var saved []*Article
	for _, ra := range raw {
		a := Article{
			FeedID:      feed.ID,
			Title:       ra.Title,
			Description: ra.Description,
			Link:        ra.Link,
			Published:   ra.Published,
			Images:      ra.Images,
			ContentHash: contentHash(ra.Title, ra.Description, ra.Link),
		}
		result, err := ig.articles.SaveArticle(ctx, a)
		if err != nil {
			return saved, err
		}
		if result != nil {
			saved = append(saved, result)
		}
	}
	return saved, nil
}

// ExtractAndMaterialize crawls an article's link for full text/HTML, marks
// it processed, and materializes a documents.Document in the feed's scoped
// folder so it flows through the normal chunk/embed pipeline. Scope is
// inferred from the feed: a feed with no user id is global, otherwise the
// document belongs to that user (spec §4.9).
func (ig *Ingestor) ExtractAndMaterialize(ctx context.Context, feed *Feed, article *Article) error {
	result, err := documents.CrawlAndExtract(ctx, ig.http, article.Link)
	if err != nil {
		return err
	}

	kind := documents.CollectionGlobal
	if feed.UserID != nil {
		kind = documents.CollectionUser
	}

	uploadRes, err := ig.docs.Upload(ctx, documents.UploadInput{
		Bytes:          []byte(result.CleanedText),
		Filename:       safeArticleFilename(article.Title, article.ID),
		UserID:         feed.UserID,
		CollectionKind: kind,
		FolderPath:     []string{"RSS", feed.DisplayName},
	})
	if err != nil {
		return err
	}

	docID := uploadRes.Document.ID
	if uploadRes.DuplicateOfID != nil {
		docID = *uploadRes.DuplicateOfID
	} else if ig.docRepo != nil {
		category := rssImportCategory
		if err := ig.docRepo.UpdateMetadata(ctx, docID, feed.UserID, &article.Title, nil, &category, feed.Tags); err != nil {
			ig.log.Warn().Err(err).Str("document_id", docID).Msg("failed to tag rss-imported document")
		}
	}

	return ig.articles.MarkProcessed(ctx, article.ID, result.CleanedText, result.RawHTML, result.Images, docID)
}

func safeArticleFilename(title, fallbackID string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = fallbackID
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if len(name) > 120 {
		name = name[:120]
	}
	return name + ".md"
}
