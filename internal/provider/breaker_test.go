package provider

import (
	"testing"
	"time"
)

// fakeClock lets tests advance breaker time without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := NewBreaker(cfg)
	b.now = clock.now
	return b, clock
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{FailureThreshold: 3, Window: time.Minute, Cooldown: 30 * time.Second})

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if got := b.State(); got != Closed {
			t.Fatalf("after %d failures state = %v, want closed", i+1, got)
		}
	}

	b.RecordFailure()
	if got := b.State(); got != Open {
		t.Fatalf("after threshold failures state = %v, want open", got)
	}
	if b.Allow() {
		t.Error("Allow() = true while open within cooldown")
	}
}

func TestBreaker_WindowResetsCount(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{FailureThreshold: 3, Window: time.Minute, Cooldown: 30 * time.Second})

	b.RecordFailure()
	b.RecordFailure()

	// Third failure lands outside the rolling window; count restarts.
	clock.advance(2 * time.Minute)
	b.RecordFailure()

	if got := b.State(); got != Closed {
		t.Errorf("state = %v, want closed (window should have reset count)", got)
	}
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{FailureThreshold: 1, Window: time.Minute, Cooldown: 30 * time.Second})

	b.RecordFailure()
	if got := b.State(); got != Open {
		t.Fatalf("state = %v, want open", got)
	}

	clock.advance(31 * time.Second)
	if !b.Allow() {
		t.Fatal("Allow() = false after cooldown, want half-open probe allowed")
	}
	if got := b.State(); got != HalfOpen {
		t.Fatalf("state = %v, want half-open", got)
	}
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{FailureThreshold: 1, Window: time.Minute, Cooldown: 30 * time.Second})

	b.RecordFailure()
	clock.advance(time.Minute)
	b.Allow()

	b.RecordSuccess()
	if got := b.State(); got != Closed {
		t.Errorf("state after half-open success = %v, want closed", got)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{FailureThreshold: 5, Window: time.Minute, Cooldown: 30 * time.Second})

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.advance(time.Minute)
	b.Allow()

	b.RecordFailure()
	if got := b.State(); got != Open {
		t.Fatalf("state after half-open failure = %v, want open", got)
	}
	if b.Allow() {
		t.Error("Allow() = true immediately after reopening")
	}
}
