// Package adapters contains one adapter per upstream API. Each adapter owns
// its provider's URL construction, symbol mapping, and field extraction, and
// shapes raw responses into canonical records. Adapters are swappable
// strategy objects; the orchestrator never sees provider-specific payloads.
package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pulsefeed/coinpulse/internal/httpclient"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// coinGeckoIDs maps common ticker symbols to CoinGecko coin ids. Symbols
// outside this map fall back to the market-cap-ordered listing with
// client-side filtering.
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"USDC":  "usd-coin",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"TRX":   "tron",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"ATOM":  "cosmos",
	"UNI":   "uniswap",
	"XLM":   "stellar",
	"NEAR":  "near",
	"APT":   "aptos",
}

// CoinGecko fetches market data from the CoinGecko /coins/markets endpoint.
type CoinGecko struct {
	baseURL string
	client  *httpclient.Client
}

// NewCoinGecko creates a CoinGecko market adapter.
func NewCoinGecko(client *httpclient.Client, baseURL string) *CoinGecko {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGecko{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *CoinGecko) ProviderID() string { return "coingecko" }

type coinGeckoMarket struct {
	Symbol             string   `json:"symbol"`
	Name               string   `json:"name"`
	CurrentPrice       float64  `json:"current_price"`
	PriceChangePerc24h *float64 `json:"price_change_percentage_24h"`
	TotalVolume        *float64 `json:"total_volume"`
	MarketCap          *float64 `json:"market_cap"`
	High24h            *float64 `json:"high_24h"`
	Low24h             *float64 `json:"low_24h"`
}

// FetchPrices requests market rows and shapes them into price records. When
// every requested symbol has a known CoinGecko id the request narrows to
// those ids; otherwise it pages the top of the market-cap listing.
func (g *CoinGecko) FetchPrices(ctx context.Context, symbols []string, limit int) ([]provider.PriceRecord, error) {
	perPage := limit
	if perPage <= 0 || perPage > 250 {
		perPage = 100
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", fmt.Sprintf("%d", perPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")

	if ids := lookupCoinGeckoIDs(symbols); ids != "" {
		q.Set("ids", ids)
	}

	var markets []coinGeckoMarket
	if err := g.client.GetJSON(ctx, g.ProviderID(), g.baseURL+"/coins/markets?"+q.Encode(), &markets); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]provider.PriceRecord, 0, len(markets))
	for _, m := range markets {
		records = append(records, provider.PriceRecord{
			Symbol:           provider.NormalizeSymbol(m.Symbol),
			Name:             m.Name,
			Price:            m.CurrentPrice,
			Change24hPercent: m.PriceChangePerc24h,
			Volume24h:        m.TotalVolume,
			MarketCap:        m.MarketCap,
			High24h:          m.High24h,
			Low24h:           m.Low24h,
			Source:           g.ProviderID(),
			ObservedAt:       now,
		})
	}
	return records, nil
}

func lookupCoinGeckoIDs(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		id, ok := coinGeckoIDs[provider.NormalizeSymbol(s)]
		if !ok {
			return ""
		}
		ids = append(ids, id)
	}
	return strings.Join(ids, ",")
}
