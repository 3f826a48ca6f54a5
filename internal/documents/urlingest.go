// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	urlIngestMaxRetries  = 4
	urlIngestTruncateLen = 50_000
)

var binaryExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".xlsx": true, ".xls": true,
	".zip": true, ".epub": true, ".mp3": true, ".mp4": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

// webChromePhrases are stripped from crawled page text: navigation,
// social, and legal-footer boilerplate that adds no document content.
var webChromePhrases = []string{
	"Skip to main content", "Skip to content", "Accept all cookies",
	"Accept Cookies", "We use cookies", "Subscribe to our newsletter",
	"Follow us on", "Share on Facebook", "Share on Twitter",
	"Share on LinkedIn", "All rights reserved", "Terms of Service",
	"Privacy Policy", "Cookie Policy", "Sign up for our newsletter",
	"Back to top", "Read more", "Advertisement",
}

var browserUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// URLFetchResult is the outcome of a web-page crawl.
type URLFetchResult struct {
	CleanedText string
	RawHTML     string
	Images      []string
	Title       string
}

// IsBinaryURL reports whether url's path extension indicates a direct
// binary download rather than an HTML page to crawl.
func IsBinaryURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return binaryExtensions[strings.ToLower(path.Ext(u.Path))]
}

// DownloadBinary fetches rawURL with browser-like headers, retrying with
// exponential backoff on 403/429/503 responses.
func DownloadBinary(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < urlIngestMaxRetries; attempt++ {
		body, status, err := fetchOnce(ctx, client, rawURL)
		if err == nil && status == http.StatusOK {
			return body, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("unexpected status %d fetching %s", status, rawURL)
		}
		if status != http.StatusForbidden && status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable {
			break
		}

		wait := time.Duration(1<<attempt) * time.Second
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	applyBrowserHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func applyBrowserHeaders(req *http.Request) {
	ua := browserUserAgents[int(time.Now().UnixNano())%len(browserUserAgents)]
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// CrawlAndExtract fetches an HTML page and returns cleaned text (web-chrome
// stripped, truncated to 50 000 characters), the original HTML, and the
// list of image URLs found on the page.
func CrawlAndExtract(ctx context.Context, client *http.Client, rawURL string) (*URLFetchResult, error) {
	raw, err := DownloadBinary(ctx, client, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var images []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			images = append(images, src)
		}
	})

	doc.Find("script, style, noscript, nav, footer").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Text()
	text = stripWebChrome(text)
	text = truncateCleanedText(text, urlIngestTruncateLen)

	return &URLFetchResult{
		CleanedText: text,
		RawHTML:     string(raw),
		Images:      images,
		Title:       title,
	}, nil
}

func stripWebChrome(text string) string {
	for _, phrase := range webChromePhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

func truncateCleanedText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// IngestURL runs the fetch for a URL import inline and hands the resulting
// bytes to Upload, which creates the document row and starts the normal
// chunk/embed pipeline exactly as it would for an on-disk file.
func (s *Service) IngestURL(ctx context.Context, rawURL string, in UploadInput) (*UploadResult, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	var bytes []byte
	var filename string

	if IsBinaryURL(rawURL) {
		body, err := DownloadBinary(ctx, client, rawURL)
		if err != nil {
			return nil, fmt.Errorf("download binary url: %w", err)
		}
		bytes = body
		filename = path.Base(rawURL)
	} else {
		result, err := CrawlAndExtract(ctx, client, rawURL)
		if err != nil {
			return nil, fmt.Errorf("crawl url: %w", err)
		}
		bytes = []byte(result.CleanedText)
		filename = result.Title
		if filename == "" {
			filename = path.Base(rawURL)
		}
		filename += ".txt"
	}

	urlType := DocURL
	in.Bytes = bytes
	in.Filename = filename
	in.DeclaredType = &urlType

	return s.Upload(ctx, in)
}
