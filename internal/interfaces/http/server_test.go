package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefeed/coinpulse/internal/cache"
	"github.com/pulsefeed/coinpulse/internal/fetch"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

type fakePriceAdapter struct {
	id      string
	records []provider.PriceRecord
	err     error
	calls   int
}

func (f *fakePriceAdapter) ProviderID() string { return f.id }

func (f *fakePriceAdapter) FetchPrices(ctx context.Context, symbols []string, limit int) ([]provider.PriceRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeSentimentAdapter struct {
	id      string
	reading *provider.SentimentReading
}

func (f *fakeSentimentAdapter) ProviderID() string { return f.id }

func (f *fakeSentimentAdapter) FetchSentiment(ctx context.Context) (*provider.SentimentReading, error) {
	return f.reading, nil
}

func btcRecord() provider.PriceRecord {
	return provider.PriceRecord{
		Symbol:     "BTC",
		Name:       "Bitcoin",
		Price:      65000,
		Source:     "binance",
		ObservedAt: time.Now().UTC(),
	}
}

func newTestServer(t *testing.T, priceAdapter *fakePriceAdapter) (*Server, *MetricsRegistry) {
	t.Helper()

	registry := provider.NewRegistry([]provider.Descriptor{
		{ID: "binance", DisplayName: "Binance", Category: provider.CategoryMarket, PriorityTier: 1, CacheTTL: time.Minute},
		{ID: "alternative_me", DisplayName: "Fear & Greed", Category: provider.CategorySentiment, PriorityTier: 1, CacheTTL: time.Minute},
	})

	health := provider.NewHealthTracker(registry)
	store := cache.NewTTLCache(64)
	t.Cleanup(func() { store.Close() })

	orc := fetch.NewOrchestrator(registry, health, store)
	orc.RegisterPriceAdapter(priceAdapter)
	orc.RegisterSentimentAdapter(&fakeSentimentAdapter{
		id:      "alternative_me",
		reading: &provider.SentimentReading{IndexValue: 55, Classification: "Greed", Source: "alternative_me", ObservedAt: time.Now().UTC()},
	})

	metrics := NewMetricsRegistry()
	orc.SetObserver(metrics)

	return NewServer(DefaultServerConfig(), orc, nil, metrics, "test"), metrics
}

func doRequest(server *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestPricesEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance", records: []provider.PriceRecord{btcRecord()}})

	rec := doRequest(server, "GET", "/api/prices?symbols=BTC")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var result fetch.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "binance", result.Source)
	assert.False(t, result.Cached)
	assert.Nil(t, result.Error)
}

func TestPricesEndpointInvalidLimit(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance", records: []provider.PriceRecord{btcRecord()}})

	for _, raw := range []string{"abc", "0", "-5", "900"} {
		rec := doRequest(server, "GET", "/api/prices?limit="+raw)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, "invalid_limit", payload["code"])
		assert.NotEmpty(t, payload["request_id"])
	}
}

func TestPricesEndpointAllProvidersDown(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{
		id:  "binance",
		err: &provider.ProviderError{Provider: "binance", Code: provider.ErrCodeTimeout, Message: "request timed out"},
	})

	rec := doRequest(server, "GET", "/api/prices")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var result fetch.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.NotEmpty(t, *result.Error)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance", records: []provider.PriceRecord{btcRecord()}})

	rec := doRequest(server, "GET", "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "test", payload["version"])
	assert.Equal(t, float64(2), payload["providers"])
	assert.Equal(t, float64(2), payload["providers_available"])
}

func TestSentimentEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance"})

	rec := doRequest(server, "GET", "/api/sentiment")
	assert.Equal(t, http.StatusOK, rec.Code)

	var result fetch.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "alternative_me", result.Source)
}

func TestProvidersEndpoint(t *testing.T) {
	adapter := &fakePriceAdapter{id: "binance", records: []provider.PriceRecord{btcRecord()}}
	server, _ := newTestServer(t, adapter)

	doRequest(server, "GET", "/api/prices")

	rec := doRequest(server, "GET", "/api/providers")
	assert.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Providers map[string]provider.HealthSnapshot `json:"providers"`
		Cache     cache.Stats                        `json:"cache"`
		Timestamp string                             `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Providers, 2)
	assert.NotEmpty(t, payload.Timestamp)

	binance, ok := payload.Providers["binance"]
	require.True(t, ok)
	assert.Equal(t, int64(1), binance.SuccessfulRequests)
}

func TestResetProviderEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance", records: []provider.PriceRecord{btcRecord()}})

	rec := doRequest(server, "POST", "/api/providers/binance/reset")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(server, "POST", "/api/providers/unknown/reset")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "provider_not_found", payload["code"])
}

func TestClearCacheEndpoint(t *testing.T) {
	adapter := &fakePriceAdapter{id: "binance", records: []provider.PriceRecord{btcRecord()}}
	server, _ := newTestServer(t, adapter)

	doRequest(server, "GET", "/api/prices")
	doRequest(server, "GET", "/api/prices")
	assert.Equal(t, 1, adapter.calls, "second request should be served from cache")

	rec := doRequest(server, "POST", "/api/cache/clear")
	assert.Equal(t, http.StatusOK, rec.Code)

	doRequest(server, "GET", "/api/prices")
	assert.Equal(t, 2, adapter.calls, "cleared cache should force a refetch")
}

func TestNotFoundEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance"})

	rec := doRequest(server, "GET", "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "endpoint_not_found", payload["code"])
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance"})

	req := httptest.NewRequest("OPTIONS", "/api/prices", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsForeignOrigin(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance", records: []provider.PriceRecord{btcRecord()}})

	req := httptest.NewRequest("GET", "/api/prices", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsScrapeEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakePriceAdapter{id: "binance", records: []provider.PriceRecord{btcRecord()}})

	doRequest(server, "GET", "/api/prices")

	rec := doRequest(server, "GET", "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coinpulse_provider_attempts_total")
}
