package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulsefeed/coinpulse/internal/httpclient"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// CryptoCompareNews fetches the latest articles from the CryptoCompare
// news endpoint.
type CryptoCompareNews struct {
	baseURL string
	client  *httpclient.Client
}

// NewCryptoCompareNews creates a CryptoCompare news adapter.
func NewCryptoCompareNews(client *httpclient.Client, baseURL string) *CryptoCompareNews {
	if baseURL == "" {
		baseURL = "https://min-api.cryptocompare.com"
	}
	return &CryptoCompareNews{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *CryptoCompareNews) ProviderID() string { return "cryptocompare" }

type cryptoCompareNewsResponse struct {
	Data []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Body        string `json:"body"`
		PublishedOn int64  `json:"published_on"`
		SourceInfo  struct {
			Name string `json:"name"`
		} `json:"source_info"`
	} `json:"Data"`
}

// FetchNews requests the English news stream.
func (c *CryptoCompareNews) FetchNews(ctx context.Context, limit int) ([]provider.NewsItem, error) {
	url := fmt.Sprintf("%s/data/v2/news/?lang=EN", c.baseURL)

	var resp cryptoCompareNewsResponse
	if err := c.client.GetJSON(ctx, c.ProviderID(), url, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items := make([]provider.NewsItem, 0, len(resp.Data))
	for _, a := range resp.Data {
		item := provider.NewsItem{
			Title:      strings.TrimSpace(a.Title),
			URL:        a.URL,
			SourceName: a.SourceInfo.Name,
			Summary:    truncateSummary(a.Body, 280),
			Source:     c.ProviderID(),
			ObservedAt: now,
		}
		if a.PublishedOn > 0 {
			item.PublishedAt = time.Unix(a.PublishedOn, 0).UTC()
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func truncateSummary(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
