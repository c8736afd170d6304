// Package httpclient provides the shared HTTP client used by all provider
// adapters: bounded concurrency, per-provider rate limiting and circuit
// breaking, request timeouts, and strict response validation.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pulsefeed/coinpulse/internal/provider"
)

// Config holds client pool configuration.
type Config struct {
	MaxConcurrency int
	RequestTimeout time.Duration
	UserAgent      string

	// Per-provider client-side rate limiting
	RatePerSecond float64
	RateBurst     int

	// Per-provider circuit breaker
	BreakerMaxRequests         uint32
	BreakerInterval            time.Duration
	BreakerTimeout             time.Duration
	BreakerConsecutiveFailures uint32
}

// DefaultConfig returns conservative settings suitable for free-tier APIs.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:             8,
		RequestTimeout:             10 * time.Second,
		UserAgent:                  "CoinPulse/1.0",
		RatePerSecond:              2,
		RateBurst:                  4,
		BreakerMaxRequests:         2,
		BreakerInterval:            60 * time.Second,
		BreakerTimeout:             30 * time.Second,
		BreakerConsecutiveFailures: 5,
	}
}

// Client is the shared validating HTTP client pool.
type Client struct {
	config    Config
	semaphore chan struct{}
	client    *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
}

// New creates a client pool from config.
func New(config Config) *Client {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 8
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}

	return &Client{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Get performs a validated GET on behalf of providerID and returns the raw
// body. Every returned error is a *provider.ProviderError carrying the
// failure taxonomy the health tracker keys off.
func (c *Client) Get(ctx context.Context, providerID, url string) ([]byte, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, c.wrapTransportError(providerID, ctx.Err())
	}

	if err := c.limiter(providerID).Wait(ctx); err != nil {
		return nil, c.wrapTransportError(providerID, err)
	}

	result, err := c.breaker(providerID).Execute(func() (interface{}, error) {
		return c.doGet(ctx, providerID, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &provider.ProviderError{
				Provider: providerID,
				Code:     provider.ErrCodeCircuitOpen,
				Message:  "circuit breaker open",
				Cause:    err,
			}
		}
		return nil, err
	}

	return result.([]byte), nil
}

// GetJSON performs a validated GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, providerID, url string, out interface{}) error {
	body, err := c.Get(ctx, providerID, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &provider.ProviderError{
			Provider: providerID,
			Code:     provider.ErrCodeMalformed,
			Message:  fmt.Sprintf("payload does not match expected shape: %v", err),
			Cause:    err,
		}
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, providerID, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &provider.ProviderError{
			Provider: providerID,
			Code:     provider.ErrCodeMalformed,
			Message:  fmt.Sprintf("bad request URL: %v", err),
			Cause:    err,
		}
	}

	req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.8")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.wrapTransportError(providerID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, c.wrapTransportError(providerID, err)
	}

	if err := ValidateResponse(providerID, resp.StatusCode, body); err != nil {
		log.Debug().
			Str("provider", providerID).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("response rejected by validation")
		return nil, err
	}

	log.Debug().
		Str("provider", providerID).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("response accepted")

	return body, nil
}

func (c *Client) wrapTransportError(providerID string, err error) error {
	code := provider.ErrCodeMalformed
	msg := fmt.Sprintf("request failed: %v", err)

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = provider.ErrCodeTimeout
		msg = "request timed out"
	case errors.As(err, &netErr) && netErr.Timeout():
		code = provider.ErrCodeTimeout
		msg = "request timed out"
	case errors.Is(err, context.Canceled):
		code = provider.ErrCodeTimeout
		msg = "request canceled"
	}

	return &provider.ProviderError{
		Provider: providerID,
		Code:     code,
		Message:  msg,
		Cause:    err,
	}
}

func (c *Client) limiter(providerID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[providerID]
	if !ok {
		rps := c.config.RatePerSecond
		if rps <= 0 {
			rps = 1
		}
		burst := c.config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(rps), burst)
		c.limiters[providerID] = l
	}
	return l
}

func (c *Client) breaker(providerID string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.breakers[providerID]
	if !ok {
		maxFailures := c.config.BreakerConsecutiveFailures
		if maxFailures == 0 {
			maxFailures = 5
		}
		b = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        providerID,
			MaxRequests: c.config.BreakerMaxRequests,
			Interval:    c.config.BreakerInterval,
			Timeout:     c.config.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("provider", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state change")
			},
		})
		c.breakers[providerID] = b
	}
	return b
}
