package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pulsefeed/coinpulse/internal/httpclient"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// CoinCap fetches asset listings from the CoinCap v2 API.
type CoinCap struct {
	baseURL string
	client  *httpclient.Client
}

// NewCoinCap creates a CoinCap market adapter.
func NewCoinCap(client *httpclient.Client, baseURL string) *CoinCap {
	if baseURL == "" {
		baseURL = "https://api.coincap.io/v2"
	}
	return &CoinCap{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *CoinCap) ProviderID() string { return "coincap" }

type coinCapAsset struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	PriceUSD          string `json:"priceUsd"`
	ChangePercent24Hr string `json:"changePercent24Hr"`
	VolumeUSD24Hr     string `json:"volumeUsd24Hr"`
	MarketCapUSD      string `json:"marketCapUsd"`
}

type coinCapResponse struct {
	Data []coinCapAsset `json:"data"`
}

// FetchPrices requests the ranked asset list. CoinCap returns decimal
// strings; unparseable prices drop the row.
func (c *CoinCap) FetchPrices(ctx context.Context, symbols []string, limit int) ([]provider.PriceRecord, error) {
	reqLimit := limit
	if reqLimit <= 0 || reqLimit > 2000 {
		reqLimit = 100
	}
	if len(symbols) > 0 && reqLimit < 200 {
		// Wide page so the client-side symbol filter still finds matches
		// outside the top of the ranking.
		reqLimit = 200
	}

	var resp coinCapResponse
	url := fmt.Sprintf("%s/assets?limit=%d", c.baseURL, reqLimit)
	if err := c.client.GetJSON(ctx, c.ProviderID(), url, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]provider.PriceRecord, 0, len(resp.Data))
	for _, a := range resp.Data {
		price, err := strconv.ParseFloat(a.PriceUSD, 64)
		if err != nil {
			continue
		}

		rec := provider.PriceRecord{
			Symbol:     provider.NormalizeSymbol(a.Symbol),
			Name:       a.Name,
			Price:      price,
			Source:     c.ProviderID(),
			ObservedAt: now,
		}
		if v, err := strconv.ParseFloat(a.ChangePercent24Hr, 64); err == nil {
			rec.Change24hPercent = &v
		}
		if v, err := strconv.ParseFloat(a.VolumeUSD24Hr, 64); err == nil {
			rec.Volume24h = &v
		}
		if v, err := strconv.ParseFloat(a.MarketCapUSD, 64); err == nil {
			rec.MarketCap = &v
		}
		records = append(records, rec)
	}
	return records, nil
}
