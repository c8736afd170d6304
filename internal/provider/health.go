package provider

import (
	"sort"
	"sync"
	"time"
)

// Backoff policy constants. Rate-limit failures (HTTP 429) back off far more
// aggressively than generic failures because hammering a rate-limited API
// extends the ban window.
const (
	rateLimitBackoffBase = 60 * time.Second
	rateLimitBackoffMax  = 600 * time.Second
	rateLimitDoublingCap = 4

	genericBackoffBase = 5 * time.Second
	genericBackoffMax  = 40 * time.Second
	genericDoublingCap = 3
)

// Anti-hammering penalty tiers applied to the load score. Only the matching
// tier applies.
const (
	recentUseTier1Window  = 10 * time.Second
	recentUseTier1Penalty = 50.0
	recentUseTier2Window  = 60 * time.Second
	recentUseTier2Penalty = 20.0

	consecutiveFailurePenalty = 10.0
	loadBalancingDivisor      = 100.0
)

// healthState holds the mutable statistics for one provider. Guarded by its
// own mutex; providers are independent so no cross-provider locking is needed.
type healthState struct {
	mu sync.Mutex

	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	rateLimitHits       int64
	consecutiveFailures int64

	lastRequestAt    time.Time
	lastSuccessAt    time.Time
	lastFailureAt    time.Time
	lastError        string
	lastResponseTime time.Duration

	backoffUntil time.Time
}

// HealthSnapshot is a read-only copy of one provider's health statistics,
// exposed for the stats endpoint and dashboard consumption.
type HealthSnapshot struct {
	ProviderID          string    `json:"provider_id"`
	TotalRequests       int64     `json:"total_requests"`
	SuccessfulRequests  int64     `json:"successful_requests"`
	FailedRequests      int64     `json:"failed_requests"`
	RateLimitHits       int64     `json:"rate_limit_hits"`
	ConsecutiveFailures int64     `json:"consecutive_failures"`
	SuccessRate         float64   `json:"success_rate"`
	LoadScore           float64   `json:"load_score"`
	Available           bool      `json:"is_available"`
	BackoffRemainingSec float64   `json:"backoff_remaining_seconds"`
	LastRequestAt       time.Time `json:"last_request_at,omitempty"`
	LastSuccessAt       time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       time.Time `json:"last_failure_at,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	AvgResponseTimeMS   float64   `json:"avg_response_time_ms,omitempty"`
}

// HealthTracker maintains per-provider health state and computes selection
// eligibility and ordering. State is created lazily on first reference and
// lives for the process lifetime.
type HealthTracker struct {
	registry *Registry

	mu     sync.RWMutex
	states map[string]*healthState

	now func() time.Time
}

// NewHealthTracker creates a tracker over the given registry.
func NewHealthTracker(registry *Registry) *HealthTracker {
	return &HealthTracker{
		registry: registry,
		states:   make(map[string]*healthState),
		now:      time.Now,
	}
}

// state returns the health state for id, creating zeroed state on first use.
func (t *HealthTracker) state(id string) *healthState {
	t.mu.RLock()
	s, ok := t.states[id]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.states[id]; ok {
		return s
	}
	s = &healthState{}
	t.states[id] = s
	return s
}

// RecordSuccess registers a successful request. Consecutive failures reset
// and any backoff window is cleared immediately.
func (t *HealthTracker) RecordSuccess(id string, responseTime time.Duration) {
	now := t.now()
	s := t.state(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++
	s.successfulRequests++
	s.consecutiveFailures = 0
	s.backoffUntil = time.Time{}
	s.lastRequestAt = now
	s.lastSuccessAt = now
	s.lastResponseTime = responseTime
}

// RecordFailure registers a failed request and schedules a backoff window.
// isRateLimit must be true only when the underlying failure was an HTTP 429.
func (t *HealthTracker) RecordFailure(id string, errDescription string, isRateLimit bool) {
	now := t.now()
	s := t.state(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++
	s.failedRequests++
	s.consecutiveFailures++
	s.lastRequestAt = now
	s.lastFailureAt = now
	s.lastError = errDescription

	var backoff time.Duration
	if isRateLimit {
		s.rateLimitHits++
		backoff = backoffDuration(s.consecutiveFailures, rateLimitBackoffBase, rateLimitBackoffMax, rateLimitDoublingCap)
	} else {
		backoff = backoffDuration(s.consecutiveFailures, genericBackoffBase, genericBackoffMax, genericDoublingCap)
	}
	s.backoffUntil = now.Add(backoff)
}

// backoffDuration computes base * 2^(failures-1) with the exponent capped at
// doublingCap and the result capped at max.
func backoffDuration(consecutiveFailures int64, base, max time.Duration, doublingCap uint) time.Duration {
	exp := consecutiveFailures - 1
	if exp < 0 {
		exp = 0
	}
	if exp > int64(doublingCap) {
		exp = int64(doublingCap)
	}
	backoff := base * time.Duration(1<<uint(exp))
	if backoff > max {
		backoff = max
	}
	return backoff
}

// IsAvailable reports whether the provider is outside its backoff window.
func (t *HealthTracker) IsAvailable(id string) bool {
	s := t.state(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return !t.now().Before(s.backoffUntil)
}

// LoadScore returns the composite ranking value for a provider. Lower scores
// are more eligible for selection.
func (t *HealthTracker) LoadScore(id string) float64 {
	now := t.now()
	s := t.state(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadScoreLocked(now)
}

func (s *healthState) loadScoreLocked(now time.Time) float64 {
	score := 0.0

	if s.totalRequests > 0 {
		successRate := float64(s.successfulRequests) / float64(s.totalRequests) * 100.0
		score += 100.0 - successRate
	}

	if !s.lastRequestAt.IsZero() {
		sinceLast := now.Sub(s.lastRequestAt)
		switch {
		case sinceLast < recentUseTier1Window:
			score += recentUseTier1Penalty
		case sinceLast < recentUseTier2Window:
			score += recentUseTier2Penalty
		}
	}

	score += consecutiveFailurePenalty * float64(s.consecutiveFailures)
	score += float64(s.totalRequests) / loadBalancingDivisor

	return score
}

// RankAvailable filters candidates to currently-available providers and
// orders them ascending by load score. Ties break by registry priority tier,
// then id, so the ordering is deterministic.
func (t *HealthTracker) RankAvailable(candidateIDs []string) []string {
	now := t.now()

	type ranked struct {
		id    string
		score float64
		tier  int
	}

	var eligible []ranked
	for _, id := range candidateIDs {
		s := t.state(id)
		s.mu.Lock()
		available := !now.Before(s.backoffUntil)
		score := s.loadScoreLocked(now)
		s.mu.Unlock()

		if !available {
			continue
		}

		tier := 0
		if d, err := t.registry.Get(id); err == nil {
			tier = d.PriorityTier
		}
		eligible = append(eligible, ranked{id: id, score: score, tier: tier})
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].score != eligible[j].score {
			return eligible[i].score < eligible[j].score
		}
		if eligible[i].tier != eligible[j].tier {
			return eligible[i].tier < eligible[j].tier
		}
		return eligible[i].id < eligible[j].id
	})

	ids := make([]string, len(eligible))
	for i, e := range eligible {
		ids[i] = e.id
	}
	return ids
}

// Snapshot returns a copy of one provider's statistics.
func (t *HealthTracker) Snapshot(id string) HealthSnapshot {
	now := t.now()
	s := t.state(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	successRate := 100.0
	if s.totalRequests > 0 {
		successRate = float64(s.successfulRequests) / float64(s.totalRequests) * 100.0
	}

	backoffRemaining := 0.0
	if now.Before(s.backoffUntil) {
		backoffRemaining = s.backoffUntil.Sub(now).Seconds()
	}

	return HealthSnapshot{
		ProviderID:          id,
		TotalRequests:       s.totalRequests,
		SuccessfulRequests:  s.successfulRequests,
		FailedRequests:      s.failedRequests,
		RateLimitHits:       s.rateLimitHits,
		ConsecutiveFailures: s.consecutiveFailures,
		SuccessRate:         successRate,
		LoadScore:           s.loadScoreLocked(now),
		Available:           backoffRemaining == 0,
		BackoffRemainingSec: backoffRemaining,
		LastRequestAt:       s.lastRequestAt,
		LastSuccessAt:       s.lastSuccessAt,
		LastFailureAt:       s.lastFailureAt,
		LastError:           s.lastError,
		AvgResponseTimeMS:   float64(s.lastResponseTime.Milliseconds()),
	}
}

// SnapshotAll returns statistics for every registered provider, keyed by id.
func (t *HealthTracker) SnapshotAll() map[string]HealthSnapshot {
	out := make(map[string]HealthSnapshot)
	for _, d := range t.registry.All() {
		out[d.ID] = t.Snapshot(d.ID)
	}
	return out
}

// Reset clears all statistics for one provider, making it immediately
// selectable again. Administrative operation.
func (t *HealthTracker) Reset(id string) {
	s := t.state(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests = 0
	s.successfulRequests = 0
	s.failedRequests = 0
	s.rateLimitHits = 0
	s.consecutiveFailures = 0
	s.lastRequestAt = time.Time{}
	s.lastSuccessAt = time.Time{}
	s.lastFailureAt = time.Time{}
	s.lastError = ""
	s.lastResponseTime = 0
	s.backoffUntil = time.Time{}
}
