package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulsefeed/coinpulse/internal/provider"
)

func testClient() *Client {
	cfg := DefaultConfig()
	cfg.RequestTimeout = 2 * time.Second
	cfg.RatePerSecond = 1000 // effectively unlimited for tests
	cfg.RateBurst = 1000
	return New(cfg)
}

func TestClient_GetValidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected user agent header")
		}
		w.Write([]byte(`[{"symbol":"BTC","price":65000}]`))
	}))
	defer server.Close()

	client := testClient()

	var payload []map[string]interface{}
	err := client.GetJSON(context.Background(), "binance", server.URL, &payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload) != 1 || payload[0]["symbol"] != "BTC" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestClient_PartialContentRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(`[{"symbol":"BTC","price":65000}]`))
	}))
	defer server.Close()

	_, err := testClient().Get(context.Background(), "binance", server.URL)

	var pe *provider.ProviderError
	if !errors.As(err, &pe) || pe.Code != provider.ErrCodeHTTPStatus {
		t.Fatalf("expected HTTP_STATUS error for 206, got %v", err)
	}
	if pe.HTTPStatus != 206 {
		t.Errorf("expected status 206 on error, got %d", pe.HTTPStatus)
	}
}

func TestClient_RateLimitSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer server.Close()

	_, err := testClient().Get(context.Background(), "coingecko", server.URL)

	if !provider.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestClient_TimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.RequestTimeout = 50 * time.Millisecond
	cfg.RatePerSecond = 1000
	cfg.RateBurst = 1000
	client := New(cfg)

	_, err := client.Get(context.Background(), "binance", server.URL)

	var pe *provider.ProviderError
	if !errors.As(err, &pe) || pe.Code != provider.ErrCodeTimeout {
		t.Fatalf("expected TIMEOUT error, got %v", err)
	}
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.RequestTimeout = time.Second
	cfg.RatePerSecond = 1000
	cfg.RateBurst = 1000
	cfg.BreakerConsecutiveFailures = 3
	client := New(cfg)

	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), "binance", server.URL); err == nil {
			t.Fatal("expected failure")
		}
	}

	// Breaker is open now; the next call must not reach the server.
	before := atomic.LoadInt64(&hits)
	_, err := client.Get(context.Background(), "binance", server.URL)

	var pe *provider.ProviderError
	if !errors.As(err, &pe) || pe.Code != provider.ErrCodeCircuitOpen {
		t.Fatalf("expected CIRCUIT_OPEN error, got %v", err)
	}
	if atomic.LoadInt64(&hits) != before {
		t.Error("open breaker must short-circuit without a network call")
	}
}

func TestClient_BreakersIsolatedPerProvider(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer okServer.Close()
	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badServer.Close()

	cfg := DefaultConfig()
	cfg.RequestTimeout = time.Second
	cfg.RatePerSecond = 1000
	cfg.RateBurst = 1000
	cfg.BreakerConsecutiveFailures = 2
	client := New(cfg)

	for i := 0; i < 3; i++ {
		client.Get(context.Background(), "coingecko", badServer.URL)
	}

	// coingecko's open breaker must not affect binance
	if _, err := client.Get(context.Background(), "binance", okServer.URL); err != nil {
		t.Errorf("expected independent provider to succeed, got %v", err)
	}
}

func TestClient_GetJSONShapeMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":"not a list"}`))
	}))
	defer server.Close()

	var payload []string
	err := testClient().GetJSON(context.Background(), "binance", server.URL, &payload)

	var pe *provider.ProviderError
	if !errors.As(err, &pe) || pe.Code != provider.ErrCodeMalformed {
		t.Fatalf("expected MALFORMED error on shape mismatch, got %v", err)
	}
}
