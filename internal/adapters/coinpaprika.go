package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/pulsefeed/coinpulse/internal/httpclient"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// CoinPaprika fetches ticker listings from the CoinPaprika v1 API.
type CoinPaprika struct {
	baseURL string
	client  *httpclient.Client
}

// NewCoinPaprika creates a CoinPaprika market adapter.
func NewCoinPaprika(client *httpclient.Client, baseURL string) *CoinPaprika {
	if baseURL == "" {
		baseURL = "https://api.coinpaprika.com/v1"
	}
	return &CoinPaprika{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *CoinPaprika) ProviderID() string { return "coinpaprika" }

type coinPaprikaTicker struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Quotes struct {
		USD struct {
			Price           float64  `json:"price"`
			PercentChange24 *float64 `json:"percent_change_24h"`
			Volume24h       *float64 `json:"volume_24h"`
			MarketCap       *float64 `json:"market_cap"`
		} `json:"USD"`
	} `json:"quotes"`
}

// FetchPrices requests the full ticker list in USD quotes.
func (p *CoinPaprika) FetchPrices(ctx context.Context, symbols []string, limit int) ([]provider.PriceRecord, error) {
	var tickers []coinPaprikaTicker
	if err := p.client.GetJSON(ctx, p.ProviderID(), p.baseURL+"/tickers?quotes=USD", &tickers); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]provider.PriceRecord, 0, len(tickers))
	for _, t := range tickers {
		records = append(records, provider.PriceRecord{
			Symbol:           provider.NormalizeSymbol(t.Symbol),
			Name:             t.Name,
			Price:            t.Quotes.USD.Price,
			Change24hPercent: t.Quotes.USD.PercentChange24,
			Volume24h:        t.Quotes.USD.Volume24h,
			MarketCap:        t.Quotes.USD.MarketCap,
			Source:           p.ProviderID(),
			ObservedAt:       now,
		})
	}
	return records, nil
}
