// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// rssXML mirrors the subset of RSS 2.0 this platform consumes: channel
// items with title/description/link/pubDate and optional media
// enclosures, which is the shape every mainstream feed (blogs, podcasts,
// news sites) produces.
type rssXML struct {
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Description string `xml:"description"`
			Link        string `xml:"link"`
			PubDate     string `xml:"pubDate"`
			Enclosure   struct {
				URL  string `xml:"url,attr"`
				Type string `xml:"type,attr"`
			} `xml:"enclosure"`
		} `xml:"item"`
	} `xml:"channel"`
}

var rssDateLayouts = []string{
	time.RFC1123Z, time.RFC1123, time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// Fetcher retrieves and normalizes the items of an RSS 2.0 feed; Atom
// <feed>/<entry> documents are not decoded and yield no articles.
// Grounded on documents.DownloadBinary's hardened-client shape, generalized
// from binary payloads to feed XML.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// FetchFeed downloads and parses feedURL into a list of raw, un-deduped
// articles.
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) ([]RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TriangleFeedReader/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: status %d", feedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	var parsed rssXML
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse feed xml: %w", err)
	}

	out := make([]RawArticle, 0, len(parsed.Channel.Items))
	for _, item := range parsed.Channel.Items {
		ra := RawArticle{
			Title:       item.Title,
			Description: item.Description,
			Link:        item.Link,
			Published:   parseRSSDate(item.PubDate),
		}
		if item.Enclosure.URL != "" {
			ra.Images = append(ra.Images, item.Enclosure.URL)
		}
		out = append(out, ra)
	}
	return out, nil
}

func parseRSSDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
