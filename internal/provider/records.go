package provider

import (
	"strings"
	"time"
)

// Category identifies the kind of data a provider supplies.
type Category string

const (
	CategoryMarket    Category = "market"
	CategoryNews      Category = "news"
	CategorySentiment Category = "sentiment"
)

// PriceRecord is the canonical, provider-agnostic price unit returned to callers.
type PriceRecord struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name,omitempty"`
	Price            float64   `json:"price"`
	Change24hPercent *float64  `json:"change_24h_percent,omitempty"`
	Volume24h        *float64  `json:"volume_24h,omitempty"`
	MarketCap        *float64  `json:"market_cap,omitempty"`
	High24h          *float64  `json:"high_24h,omitempty"`
	Low24h           *float64  `json:"low_24h,omitempty"`
	Source           string    `json:"source"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Valid reports whether the record carries the required symbol and a usable price.
// Records failing this are dropped before a fetch counts as successful.
func (r PriceRecord) Valid() bool {
	return r.Symbol != "" && r.Price > 0
}

// NewsItem is the canonical news unit.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	SourceName  string    `json:"source_name,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Source      string    `json:"source"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Valid reports whether the item carries the required title.
func (n NewsItem) Valid() bool {
	return strings.TrimSpace(n.Title) != ""
}

// SentimentReading is the canonical sentiment unit (e.g. a fear/greed index value).
type SentimentReading struct {
	IndexValue     float64   `json:"index_value"`
	Classification string    `json:"classification,omitempty"`
	Source         string    `json:"source"`
	ObservedAt     time.Time `json:"observed_at"`
}

// Valid reports whether the reading is within the 0-100 index range.
func (s SentimentReading) Valid() bool {
	return s.IndexValue >= 0 && s.IndexValue <= 100
}

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
