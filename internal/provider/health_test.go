package provider

import (
	"fmt"
	"testing"
	"time"
)

func testRegistry() *Registry {
	return NewRegistry([]Descriptor{
		{ID: "binance", Category: CategoryMarket, PriorityTier: 1, CacheTTL: 30 * time.Second},
		{ID: "coingecko", Category: CategoryMarket, PriorityTier: 1, CacheTTL: 60 * time.Second},
		{ID: "coincap", Category: CategoryMarket, PriorityTier: 2, CacheTTL: 60 * time.Second},
	})
}

func trackerAt(t *testing.T, now time.Time) (*HealthTracker, *time.Time) {
	t.Helper()
	current := now
	tracker := NewHealthTracker(testRegistry())
	tracker.now = func() time.Time { return current }
	return tracker, &current
}

func TestHealthTracker_RateLimitBackoffGrowth(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker, _ := trackerAt(t, base)

	// 60s doubling per consecutive rate-limit failure, capped at 600s
	expected := []time.Duration{
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		480 * time.Second,
		600 * time.Second,
		600 * time.Second,
	}

	var previous time.Duration
	for i, want := range expected {
		tracker.RecordFailure("binance", "HTTP 429", true)

		snap := tracker.Snapshot("binance")
		got := time.Duration(snap.BackoffRemainingSec * float64(time.Second))
		if got != want {
			t.Errorf("failure %d: expected backoff %v, got %v", i+1, want, got)
		}
		if got < previous {
			t.Errorf("failure %d: backoff decreased from %v to %v", i+1, previous, got)
		}
		previous = got
	}
}

func TestHealthTracker_GenericBackoffGrowth(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker, _ := trackerAt(t, base)

	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		40 * time.Second,
	}

	for i, want := range expected {
		tracker.RecordFailure("binance", "connection refused", false)

		snap := tracker.Snapshot("binance")
		got := time.Duration(snap.BackoffRemainingSec * float64(time.Second))
		if got != want {
			t.Errorf("failure %d: expected backoff %v, got %v", i+1, want, got)
		}
	}
}

func TestHealthTracker_SuccessResetsFailureState(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker, _ := trackerAt(t, base)

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("binance", "HTTP 429", true)
	}
	if tracker.IsAvailable("binance") {
		t.Fatal("expected provider to be in backoff after failures")
	}

	tracker.RecordSuccess("binance", 120*time.Millisecond)

	if !tracker.IsAvailable("binance") {
		t.Error("expected provider available immediately after success")
	}

	snap := tracker.Snapshot("binance")
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("expected consecutive failures reset to 0, got %d", snap.ConsecutiveFailures)
	}
	if snap.BackoffRemainingSec != 0 {
		t.Errorf("expected backoff cleared, got %.1fs remaining", snap.BackoffRemainingSec)
	}
	if snap.TotalRequests != 6 {
		t.Errorf("expected 6 total requests, got %d", snap.TotalRequests)
	}
}

func TestHealthTracker_LazyZeroState(t *testing.T) {
	tracker := NewHealthTracker(testRegistry())

	if !tracker.IsAvailable("binance") {
		t.Error("untouched provider should be available")
	}
	if score := tracker.LoadScore("binance"); score != 0 {
		t.Errorf("untouched provider should score 0, got %f", score)
	}

	snap := tracker.Snapshot("binance")
	if snap.SuccessRate != 100.0 {
		t.Errorf("zero-request success rate should be 100%%, got %f", snap.SuccessRate)
	}
}

func TestHealthTracker_LoadScoreComposition(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker, current := trackerAt(t, base)

	// One success and one failure: 50% success rate
	tracker.RecordSuccess("binance", 100*time.Millisecond)
	*current = base.Add(1 * time.Second)
	tracker.RecordFailure("binance", "HTTP 500", false)

	// 2 seconds after last request: tier-1 recent-use penalty applies
	*current = base.Add(3 * time.Second)
	score := tracker.LoadScore("binance")
	want := 50.0 + 50.0 + 10.0 + 2.0/100.0
	if score != want {
		t.Errorf("expected score %f inside tier-1 window, got %f", want, score)
	}

	// 30 seconds after last request: tier-2 penalty applies instead
	*current = base.Add(31 * time.Second)
	score = tracker.LoadScore("binance")
	want = 50.0 + 20.0 + 10.0 + 2.0/100.0
	if score != want {
		t.Errorf("expected score %f inside tier-2 window, got %f", want, score)
	}

	// Past both windows: no recent-use penalty
	*current = base.Add(2 * time.Minute)
	score = tracker.LoadScore("binance")
	want = 50.0 + 10.0 + 2.0/100.0
	if score != want {
		t.Errorf("expected score %f outside windows, got %f", want, score)
	}
}

func TestHealthTracker_RankAvailableOrdersByScore(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker, current := trackerAt(t, base)

	// Shape three providers into distinct scores, then move past the
	// recent-use windows so only the health components differ.
	for i := 0; i < 9; i++ {
		tracker.RecordSuccess("binance", 50*time.Millisecond)
	}
	tracker.RecordFailure("binance", "HTTP 500", false) // 90% success

	for i := 0; i < 10; i++ {
		tracker.RecordSuccess("coingecko", 50*time.Millisecond)
	}

	for i := 0; i < 4; i++ {
		tracker.RecordSuccess("coincap", 50*time.Millisecond)
	}
	tracker.RecordFailure("coincap", "HTTP 500", false)
	tracker.RecordFailure("coincap", "HTTP 500", false) // 66% success, 2 consecutive

	*current = base.Add(5 * time.Minute)

	ranked := tracker.RankAvailable([]string{"binance", "coingecko", "coincap"})
	want := []string{"coingecko", "binance", "coincap"}
	if len(ranked) != len(want) {
		t.Fatalf("expected %d ranked providers, got %d: %v", len(want), len(ranked), ranked)
	}
	for i := range want {
		if ranked[i] != want[i] {
			t.Errorf("rank %d: expected %s, got %s", i, want[i], ranked[i])
		}
	}
}

func TestHealthTracker_RankAvailableExcludesBackedOff(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker, current := trackerAt(t, base)

	// coingecko has a perfect score but is in backoff
	tracker.RecordFailure("coingecko", "HTTP 429", true)

	*current = base.Add(5 * time.Second)
	ranked := tracker.RankAvailable([]string{"binance", "coingecko", "coincap"})
	for _, id := range ranked {
		if id == "coingecko" {
			t.Error("provider in backoff must be excluded regardless of score")
		}
	}
	if len(ranked) != 2 {
		t.Errorf("expected 2 available providers, got %d", len(ranked))
	}

	// After the backoff window it is selectable again
	*current = base.Add(2 * time.Minute)
	ranked = tracker.RankAvailable([]string{"binance", "coingecko", "coincap"})
	if len(ranked) != 3 {
		t.Errorf("expected all providers after backoff expiry, got %d", len(ranked))
	}
}

func TestHealthTracker_RankTieBreaksDeterministic(t *testing.T) {
	tracker := NewHealthTracker(testRegistry())

	// All zero state: scores tie at 0. Ties break by priority tier then id.
	ranked := tracker.RankAvailable([]string{"coincap", "coingecko", "binance"})
	want := []string{"binance", "coingecko", "coincap"}
	for i := range want {
		if ranked[i] != want[i] {
			t.Errorf("rank %d: expected %s, got %s (full order: %v)", i, want[i], ranked[i], ranked)
		}
	}
}

func TestHealthTracker_IndependentBackoffPerProvider(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker, _ := trackerAt(t, base)

	providers := []string{"binance", "coingecko", "coincap"}
	expected := []float64{60, 120, 240, 480}

	for round, want := range expected {
		for _, id := range providers {
			tracker.RecordFailure(id, "HTTP 429", true)
		}
		for _, id := range providers {
			snap := tracker.Snapshot(id)
			if snap.BackoffRemainingSec != want {
				t.Errorf("round %d provider %s: expected %.0fs backoff, got %.0fs",
					round+1, id, want, snap.BackoffRemainingSec)
			}
		}
	}
}

func TestHealthTracker_Reset(t *testing.T) {
	tracker := NewHealthTracker(testRegistry())

	for i := 0; i < 3; i++ {
		tracker.RecordFailure("binance", "HTTP 429", true)
	}

	tracker.Reset("binance")

	snap := tracker.Snapshot("binance")
	if snap.TotalRequests != 0 || snap.ConsecutiveFailures != 0 {
		t.Errorf("expected zeroed state after reset, got %+v", snap)
	}
	if !tracker.IsAvailable("binance") {
		t.Error("expected provider available after reset")
	}
}

func TestHealthTracker_RateLimitCounter(t *testing.T) {
	tracker := NewHealthTracker(testRegistry())

	tracker.RecordFailure("binance", "HTTP 429", true)
	tracker.RecordFailure("binance", "HTTP 500", false)
	tracker.RecordFailure("binance", "HTTP 429", true)

	snap := tracker.Snapshot("binance")
	if snap.RateLimitHits != 2 {
		t.Errorf("expected 2 rate limit hits, got %d", snap.RateLimitHits)
	}
	if snap.FailedRequests != 3 {
		t.Errorf("expected 3 failed requests, got %d", snap.FailedRequests)
	}
}

func TestHealthTracker_ConcurrentRecording(t *testing.T) {
	tracker := NewHealthTracker(testRegistry())

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			id := fmt.Sprintf("provider-%d", g%3)
			for i := 0; i < 100; i++ {
				if i%2 == 0 {
					tracker.RecordSuccess(id, time.Millisecond)
				} else {
					tracker.RecordFailure(id, "err", false)
				}
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	var total int64
	for i := 0; i < 3; i++ {
		total += tracker.Snapshot(fmt.Sprintf("provider-%d", i)).TotalRequests
	}
	if total != 800 {
		t.Errorf("expected 800 recorded requests, got %d", total)
	}
}
