// Package fetch implements the smart fetch orchestrator: for each logical
// request it consults the cache, ranks the candidate providers by health,
// tries them in order until one yields a valid response, and records the
// outcome into the health tracker.
package fetch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pulsefeed/coinpulse/internal/cache"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

const errAllUnavailable = "all providers unavailable"

// Observer receives orchestration events for metrics collection. All methods
// may be called concurrently.
type Observer interface {
	CacheHit(operation string)
	CacheMiss(operation string)
	ProviderAttempt(providerID string)
	ProviderSuccess(providerID string, duration time.Duration)
	ProviderFailure(providerID string, code string)
}

type noopObserver struct{}

func (noopObserver) CacheHit(string)                       {}
func (noopObserver) CacheMiss(string)                      {}
func (noopObserver) ProviderAttempt(string)                {}
func (noopObserver) ProviderSuccess(string, time.Duration) {}
func (noopObserver) ProviderFailure(string, string)        {}

// Orchestrator coordinates provider selection, caching, and health tracking
// for all logical fetch operations. One instance per process, constructed at
// startup and shared by the route layer and the WebSocket broadcaster.
type Orchestrator struct {
	registry *provider.Registry
	health   *provider.HealthTracker
	cache    cache.Cache
	observer Observer

	prices    map[string]provider.PriceAdapter
	news      map[string]provider.NewsAdapter
	sentiment map[string]provider.SentimentAdapter
}

// NewOrchestrator creates an orchestrator over the given registry, health
// tracker, and cache backend.
func NewOrchestrator(registry *provider.Registry, health *provider.HealthTracker, store cache.Cache) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		health:    health,
		cache:     store,
		observer:  noopObserver{},
		prices:    make(map[string]provider.PriceAdapter),
		news:      make(map[string]provider.NewsAdapter),
		sentiment: make(map[string]provider.SentimentAdapter),
	}
}

// SetObserver installs a metrics observer. Must be called before serving.
func (o *Orchestrator) SetObserver(obs Observer) {
	if obs != nil {
		o.observer = obs
	}
}

// RegisterPriceAdapter registers a market-data adapter under its provider id.
func (o *Orchestrator) RegisterPriceAdapter(a provider.PriceAdapter) {
	o.prices[a.ProviderID()] = a
}

// RegisterNewsAdapter registers a news adapter under its provider id.
func (o *Orchestrator) RegisterNewsAdapter(a provider.NewsAdapter) {
	o.news[a.ProviderID()] = a
}

// RegisterSentimentAdapter registers a sentiment adapter under its provider id.
func (o *Orchestrator) RegisterSentimentAdapter(a provider.SentimentAdapter) {
	o.sentiment[a.ProviderID()] = a
}

// GetMarketPrices returns canonical price records, optionally filtered to
// symbols and truncated to limit.
func (o *Orchestrator) GetMarketPrices(ctx context.Context, symbols []string, limit int) Result {
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if n := provider.NormalizeSymbol(s); n != "" {
			normalized = append(normalized, n)
		}
	}

	key := cache.Key("market_prices", strings.Join(normalized, ","), strconv.Itoa(limit))

	return o.fetch(ctx, "market_prices", key, provider.CategoryMarket, func(ctx context.Context, d provider.Descriptor) (interface{}, error) {
		adapter, ok := o.prices[d.ID]
		if !ok {
			return nil, &provider.ProviderError{
				Provider: d.ID,
				Code:     provider.ErrCodeNotFound,
				Message:  "no market adapter registered",
			}
		}

		records, err := adapter.FetchPrices(ctx, normalized, limit)
		if err != nil {
			return nil, err
		}

		records = provider.FilterPrices(provider.DropInvalidPrices(records), normalized, limit)
		if len(records) == 0 {
			return nil, &provider.ProviderError{
				Provider: d.ID,
				Code:     provider.ErrCodeMalformed,
				Message:  "no valid price records in response",
			}
		}
		return records, nil
	})
}

// GetNews returns canonical news items, truncated to limit.
func (o *Orchestrator) GetNews(ctx context.Context, limit int) Result {
	key := cache.Key("news", strconv.Itoa(limit))

	return o.fetch(ctx, "news", key, provider.CategoryNews, func(ctx context.Context, d provider.Descriptor) (interface{}, error) {
		adapter, ok := o.news[d.ID]
		if !ok {
			return nil, &provider.ProviderError{
				Provider: d.ID,
				Code:     provider.ErrCodeNotFound,
				Message:  "no news adapter registered",
			}
		}

		items, err := adapter.FetchNews(ctx, limit)
		if err != nil {
			return nil, err
		}

		items = provider.DropInvalidNews(items)
		if len(items) == 0 {
			return nil, &provider.ProviderError{
				Provider: d.ID,
				Code:     provider.ErrCodeMalformed,
				Message:  "no valid news items in response",
			}
		}
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return items, nil
	})
}

// GetSentiment returns the current market sentiment reading.
func (o *Orchestrator) GetSentiment(ctx context.Context) Result {
	key := cache.Key("sentiment")

	return o.fetch(ctx, "sentiment", key, provider.CategorySentiment, func(ctx context.Context, d provider.Descriptor) (interface{}, error) {
		adapter, ok := o.sentiment[d.ID]
		if !ok {
			return nil, &provider.ProviderError{
				Provider: d.ID,
				Code:     provider.ErrCodeNotFound,
				Message:  "no sentiment adapter registered",
			}
		}

		reading, err := adapter.FetchSentiment(ctx)
		if err != nil {
			return nil, err
		}
		if reading == nil || !reading.Valid() {
			return nil, &provider.ProviderError{
				Provider: d.ID,
				Code:     provider.ErrCodeMalformed,
				Message:  "no valid sentiment reading in response",
			}
		}
		return reading, nil
	})
}

// fetch is the generalized selection loop shared by every operation:
// cache check, rank, iterate candidates in the order computed at the start of
// the request, record outcomes, cache the first valid payload.
func (o *Orchestrator) fetch(ctx context.Context, operation, key string, category provider.Category, attempt func(context.Context, provider.Descriptor) (interface{}, error)) Result {
	if entry, ok := o.cache.Get(key); ok {
		o.observer.CacheHit(operation)
		return successResult(entry.Payload, entry.Source, true)
	}
	o.observer.CacheMiss(operation)

	candidates := o.registry.ByCategory(category)
	ranked := o.health.RankAvailable(candidates)
	if len(ranked) == 0 {
		log.Warn().Str("operation", operation).Msg(errAllUnavailable)
		return failureResult(errAllUnavailable)
	}

	var lastErr error
	for _, id := range ranked {
		desc, err := o.registry.Get(id)
		if err != nil {
			lastErr = err
			continue
		}

		o.observer.ProviderAttempt(id)
		start := time.Now()

		callCtx, cancel := context.WithTimeout(ctx, desc.RequestTimeout)
		payload, err := attempt(callCtx, desc)
		cancel()
		elapsed := time.Since(start)

		if err != nil {
			rateLimited := provider.IsRateLimit(err)
			o.health.RecordFailure(id, err.Error(), rateLimited)
			o.observer.ProviderFailure(id, errorCode(err))
			log.Warn().
				Str("operation", operation).
				Str("provider", id).
				Bool("rate_limited", rateLimited).
				Dur("duration", elapsed).
				Err(err).
				Msg("provider attempt failed, trying next candidate")
			lastErr = err
			continue
		}

		o.health.RecordSuccess(id, elapsed)
		o.observer.ProviderSuccess(id, elapsed)
		o.cache.Set(key, cache.Entry{Payload: payload, Source: id}, desc.CacheTTL)

		log.Debug().
			Str("operation", operation).
			Str("provider", id).
			Dur("duration", elapsed).
			Msg("fetch succeeded")

		return successResult(payload, id, false)
	}

	log.Error().Str("operation", operation).Err(lastErr).Msg("all candidates exhausted")
	return failureResult(lastErr.Error())
}

// GetProviderStats returns per-provider health statistics keyed by id.
func (o *Orchestrator) GetProviderStats() map[string]provider.HealthSnapshot {
	return o.health.SnapshotAll()
}

// ResetProvider clears health state for one provider.
func (o *Orchestrator) ResetProvider(id string) error {
	if _, err := o.registry.Get(id); err != nil {
		return err
	}
	o.health.Reset(id)
	log.Info().Str("provider", id).Msg("provider health state reset")
	return nil
}

// ClearCache drops every cached response.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
	log.Info().Msg("response cache cleared")
}

// CacheStats exposes cache counters for the stats endpoint.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

func errorCode(err error) string {
	if pe, ok := err.(*provider.ProviderError); ok {
		return pe.Code
	}
	return "UNKNOWN"
}
