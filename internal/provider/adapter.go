package provider

import "context"

// PriceAdapter fetches raw data from one market-data API and shapes it into
// canonical price records. Adapters encapsulate all provider-specific URL
// construction, symbol mapping, and field extraction.
type PriceAdapter interface {
	ProviderID() string
	FetchPrices(ctx context.Context, symbols []string, limit int) ([]PriceRecord, error)
}

// NewsAdapter fetches and shapes news items from one news API or feed.
type NewsAdapter interface {
	ProviderID() string
	FetchNews(ctx context.Context, limit int) ([]NewsItem, error)
}

// SentimentAdapter fetches and shapes a sentiment reading from one API.
type SentimentAdapter interface {
	ProviderID() string
	FetchSentiment(ctx context.Context) (*SentimentReading, error)
}

// FilterPrices applies the optional symbol filter and truncates to limit.
// Symbols are matched case-insensitively.
func FilterPrices(records []PriceRecord, symbols []string, limit int) []PriceRecord {
	out := records
	if len(symbols) > 0 {
		wanted := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			wanted[NormalizeSymbol(s)] = true
		}
		out = out[:0:0]
		for _, r := range records {
			if wanted[NormalizeSymbol(r.Symbol)] {
				out = append(out, r)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DropInvalidPrices removes records missing the required symbol or price.
func DropInvalidPrices(records []PriceRecord) []PriceRecord {
	valid := records[:0:0]
	for _, r := range records {
		r.Symbol = NormalizeSymbol(r.Symbol)
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	return valid
}

// DropInvalidNews removes items missing the required title.
func DropInvalidNews(items []NewsItem) []NewsItem {
	valid := items[:0:0]
	for _, n := range items {
		if n.Valid() {
			valid = append(valid, n)
		}
	}
	return valid
}
