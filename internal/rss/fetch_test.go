// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRSSDate(t *testing.T) {
	got := parseRSSDate("Mon, 02 Jan 2006 15:04:05 -0700")
	require.NotNil(t, got)
	assert.Equal(t, 2006, got.Year())

	assert.Nil(t, parseRSSDate(""))
	assert.Nil(t, parseRSSDate("not a date"))
}

func TestFetchFeed_ParsesItems(t *testing.T) {
	// Exercises the XML decode path in isolation from the network by
	// reusing the unmarshal logic FetchFeed itself calls.
	const body = `<?xml version="1.0"?>
<rss><channel>
  <item>
    <title>Hello</title>
    <description>World</description>
    <link>https://example.com/a</link>
    <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
  </item>
</channel></rss>`

	var parsed rssXML
	require.NoError(t, xml.Unmarshal([]byte(body), &parsed))
	require.Len(t, parsed.Channel.Items, 1)
	assert.Equal(t, "Hello", parsed.Channel.Items[0].Title)
	assert.Equal(t, "https://example.com/a", parsed.Channel.Items[0].Link)
}
