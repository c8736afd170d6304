package adapters

import (
	"github.com/rs/zerolog/log"

	"github.com/pulsefeed/coinpulse/internal/fetch"
	"github.com/pulsefeed/coinpulse/internal/httpclient"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// Register builds the adapter for every registered provider descriptor and
// installs it into the orchestrator. Adding a provider means adding one case
// here and one descriptor to the config; nothing else changes.
func Register(orc *fetch.Orchestrator, client *httpclient.Client, registry *provider.Registry) {
	for _, d := range registry.All() {
		switch d.ID {
		case "coingecko":
			orc.RegisterPriceAdapter(NewCoinGecko(client, d.BaseURL))
		case "binance":
			orc.RegisterPriceAdapter(NewBinance(client, d.BaseURL))
		case "coincap":
			orc.RegisterPriceAdapter(NewCoinCap(client, d.BaseURL))
		case "coinpaprika":
			orc.RegisterPriceAdapter(NewCoinPaprika(client, d.BaseURL))
		case "cryptocompare":
			orc.RegisterNewsAdapter(NewCryptoCompareNews(client, d.BaseURL))
		case "alternative_me":
			orc.RegisterSentimentAdapter(NewAlternativeMe(client, d.BaseURL))
		default:
			if d.Category == provider.CategoryNews && d.BaseURL != "" {
				// Unrecognized news providers are treated as RSS feeds.
				orc.RegisterNewsAdapter(NewRSSNews(client, d.ID, d.DisplayName, d.BaseURL))
				continue
			}
			log.Warn().Str("provider", d.ID).Msg("no adapter available for provider, skipping")
		}
	}
}
