package adapters

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pulsefeed/coinpulse/internal/httpclient"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// Binance fetches 24h ticker statistics for USDT spot pairs.
type Binance struct {
	baseURL string
	client  *httpclient.Client
}

// NewBinance creates a Binance market adapter.
func NewBinance(client *httpclient.Client, baseURL string) *Binance {
	if baseURL == "" {
		baseURL = "https://api.binance.com/api/v3"
	}
	return &Binance{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (b *Binance) ProviderID() string { return "binance" }

type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
}

// FetchPrices requests the full 24hr ticker list and keeps USDT-quoted
// pairs, stripping the quote suffix so BTCUSDT becomes BTC.
func (b *Binance) FetchPrices(ctx context.Context, symbols []string, limit int) ([]provider.PriceRecord, error) {
	var tickers []binanceTicker
	if err := b.client.GetJSON(ctx, b.ProviderID(), b.baseURL+"/ticker/24hr", &tickers); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]provider.PriceRecord, 0, len(tickers))
	for _, t := range tickers {
		base, ok := strings.CutSuffix(t.Symbol, "USDT")
		if !ok || base == "" {
			continue
		}

		price, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil {
			continue
		}

		rec := provider.PriceRecord{
			Symbol:     provider.NormalizeSymbol(base),
			Price:      price,
			Source:     b.ProviderID(),
			ObservedAt: now,
		}
		if v, err := strconv.ParseFloat(t.PriceChangePercent, 64); err == nil {
			rec.Change24hPercent = &v
		}
		if v, err := strconv.ParseFloat(t.QuoteVolume, 64); err == nil {
			rec.Volume24h = &v
		}
		if v, err := strconv.ParseFloat(t.HighPrice, 64); err == nil {
			rec.High24h = &v
		}
		if v, err := strconv.ParseFloat(t.LowPrice, 64); err == nil {
			rec.Low24h = &v
		}
		records = append(records, rec)
	}
	return records, nil
}
