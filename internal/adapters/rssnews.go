package adapters

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/pulsefeed/coinpulse/internal/httpclient"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// RSSNews is a generic news adapter for any RSS 2.0 feed (CoinDesk,
// CoinTelegraph, and similar crypto outlets all publish one).
type RSSNews struct {
	id          string
	displayName string
	feedURL     string
	client      *httpclient.Client
}

// NewRSSNews creates an RSS feed adapter with the given provider identity.
func NewRSSNews(client *httpclient.Client, id, displayName, feedURL string) *RSSNews {
	return &RSSNews{id: id, displayName: displayName, feedURL: feedURL, client: client}
}

func (r *RSSNews) ProviderID() string { return r.id }

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// rssDateLayouts covers the pubDate formats seen across crypto feeds.
var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// FetchNews downloads the feed and shapes its items. The body passed HTTP
// validation (feed markers present); a body that then fails XML parsing is
// malformed.
func (r *RSSNews) FetchNews(ctx context.Context, limit int) ([]provider.NewsItem, error) {
	body, err := r.client.Get(ctx, r.id, r.feedURL)
	if err != nil {
		return nil, err
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &provider.ProviderError{
			Provider: r.id,
			Code:     provider.ErrCodeMalformed,
			Message:  fmt.Sprintf("feed is not valid RSS: %v", err),
			Cause:    err,
		}
	}

	now := time.Now().UTC()
	items := make([]provider.NewsItem, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		item := provider.NewsItem{
			Title:      strings.TrimSpace(it.Title),
			URL:        strings.TrimSpace(it.Link),
			SourceName: r.displayName,
			Summary:    strings.TrimSpace(it.Description),
			Source:     r.id,
			ObservedAt: now,
		}
		if ts, ok := parseRSSDate(it.PubDate); ok {
			item.PublishedAt = ts
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func parseRSSDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range rssDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
