package adapters

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pulsefeed/coinpulse/internal/httpclient"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// AlternativeMe fetches the Crypto Fear & Greed index from alternative.me.
type AlternativeMe struct {
	baseURL string
	client  *httpclient.Client
}

// NewAlternativeMe creates a Fear & Greed sentiment adapter.
func NewAlternativeMe(client *httpclient.Client, baseURL string) *AlternativeMe {
	if baseURL == "" {
		baseURL = "https://api.alternative.me"
	}
	return &AlternativeMe{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (a *AlternativeMe) ProviderID() string { return "alternative_me" }

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
}

// FetchSentiment requests the latest index reading.
func (a *AlternativeMe) FetchSentiment(ctx context.Context) (*provider.SentimentReading, error) {
	var resp fearGreedResponse
	if err := a.client.GetJSON(ctx, a.ProviderID(), a.baseURL+"/fng/?limit=1", &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, &provider.ProviderError{
			Provider: a.ProviderID(),
			Code:     provider.ErrCodeMalformed,
			Message:  "fear & greed payload has no data rows",
		}
	}

	row := resp.Data[0]
	value, err := strconv.ParseFloat(row.Value, 64)
	if err != nil {
		return nil, &provider.ProviderError{
			Provider: a.ProviderID(),
			Code:     provider.ErrCodeMalformed,
			Message:  "fear & greed value is not numeric",
			Cause:    err,
		}
	}

	observed := time.Now().UTC()
	if unix, err := strconv.ParseInt(row.Timestamp, 10, 64); err == nil {
		observed = time.Unix(unix, 0).UTC()
	}

	return &provider.SentimentReading{
		IndexValue:     value,
		Classification: row.ValueClassification,
		Source:         a.ProviderID(),
		ObservedAt:     observed,
	}, nil
}
