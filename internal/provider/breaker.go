package provider

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state for a single provider.
type BreakerState int

const (
	// Closed: calls flow through; failures are counted.
	Closed BreakerState = iota
	// Open: calls are skipped without a network attempt until the
	// cool-down interval elapses.
	Open
	// HalfOpen: a single probe call is allowed; success closes the
	// circuit, failure re-opens it.
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the tunable thresholds for a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures within the
	// rolling window that opens the circuit.
	FailureThreshold int
	// Window bounds how far apart consecutive failures may be and still
	// count toward the threshold.
	Window time.Duration
	// Cooldown is how long an open circuit rejects calls before allowing
	// a half-open probe.
	Cooldown time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	return c
}

// Breaker is a circuit breaker for one provider. State transitions are pure
// functions of the failure counter and timestamps; the clock is injectable
// so transitions are testable without sleeping.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu           sync.Mutex
	state        BreakerState
	failures     int
	firstFailure time.Time
	openedAt     time.Time
}

// NewBreaker creates a closed Breaker with the given thresholds.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), now: time.Now}
}

// Allow reports whether a call may proceed, transitioning Open to HalfOpen
// once the cool-down has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
			b.state = HalfOpen
			return true
		}
		return false
	}
	return false
}

// RecordSuccess resets the breaker to Closed and clears the failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
}

// RecordFailure counts a failure and opens the circuit once the threshold
// of consecutive failures within the window is reached. A failure in
// HalfOpen re-opens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	if b.state == HalfOpen {
		b.state = Open
		b.openedAt = now
		b.failures = 0
		return
	}

	// Failures outside the rolling window restart the count.
	if b.failures == 0 || now.Sub(b.firstFailure) > b.cfg.Window {
		b.failures = 0
		b.firstFailure = now
	}
	b.failures++

	if b.failures >= b.cfg.FailureThreshold {
		b.state = Open
		b.openedAt = now
		b.failures = 0
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
