package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how the gateway retries transient failures against a
// single provider before falling through to the next one.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	return p
}

// Gateway invokes an ordered chain of providers with per-provider circuit
// breaking and bounded retry. It is stateless with respect to call payloads;
// the only mutation is breaker bookkeeping.
type Gateway struct {
	providers []Provider
	breakers  map[string]*Breaker
	retry     RetryPolicy
	logger    *slog.Logger

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) GatewayOption {
	return func(g *Gateway) { g.retry = p.withDefaults() }
}

// WithBreakerConfig rebuilds all provider breakers with the given thresholds.
func WithBreakerConfig(cfg BreakerConfig) GatewayOption {
	return func(g *Gateway) {
		for _, p := range g.providers {
			g.breakers[p.Name()] = NewBreaker(cfg)
		}
	}
}

// NewGateway creates a Gateway over the given fallback chain. Providers are
// tried in order; each gets an independent circuit breaker.
func NewGateway(providers []Provider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		providers: providers,
		breakers:  make(map[string]*Breaker, len(providers)),
		retry:     RetryPolicy{}.withDefaults(),
		logger:    slog.Default(),
		sleep:     sleepCtx,
	}
	for _, p := range providers {
		g.breakers[p.Name()] = NewBreaker(BreakerConfig{})
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke tries each provider in chain order. Open circuits are skipped
// without a network attempt. Transient failures are retried with exponential
// backoff plus jitter up to the attempt cap; permanent failures move to the
// next provider immediately. When the chain is exhausted the returned
// *ExhaustedError lists every provider's terminal failure.
func (g *Gateway) Invoke(ctx context.Context, req Request) (*Response, error) {
	var failures []ProviderFailure

	for _, p := range g.providers {
		br := g.breakers[p.Name()]
		if !br.Allow() {
			g.logger.Debug("skipping provider, circuit open", "provider", p.Name())
			failures = append(failures, ProviderFailure{Provider: p.Name(), Err: &CircuitOpenError{Provider: p.Name()}})
			continue
		}

		resp, err := g.invokeWithRetry(ctx, p, br, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			failures = append(failures, ProviderFailure{Provider: p.Name(), Err: err})
			return nil, &ExhaustedError{Failures: failures}
		}

		g.logger.Warn("provider exhausted, falling back", "provider", p.Name(), "error", err)
		failures = append(failures, ProviderFailure{Provider: p.Name(), Err: err})
	}

	return nil, &ExhaustedError{Failures: failures}
}

// BreakerState exposes the current breaker state for a provider, for status
// reporting. Unknown providers report Closed.
func (g *Gateway) BreakerState(name string) BreakerState {
	if br, ok := g.breakers[name]; ok {
		return br.State()
	}
	return Closed
}

// ProviderStatus reports one provider's circuit state.
type ProviderStatus struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

// Status reports the breaker state of every provider in chain order.
func (g *Gateway) Status() []ProviderStatus {
	statuses := make([]ProviderStatus, 0, len(g.providers))
	for _, p := range g.providers {
		statuses = append(statuses, ProviderStatus{
			Provider: p.Name(),
			State:    g.breakers[p.Name()].State().String(),
		})
	}
	return statuses
}

func (g *Gateway) invokeWithRetry(ctx context.Context, p Provider, br *Breaker, req Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		resp, err := p.Invoke(ctx, req)
		if err == nil {
			br.RecordSuccess()
			return resp, nil
		}

		br.RecordFailure()
		lastErr = err

		if !IsTransient(err) {
			return nil, err
		}
		if attempt == g.retry.MaxAttempts-1 {
			break
		}
		// After a failure opened the circuit there is no point retrying.
		if !br.Allow() {
			break
		}

		if err := g.sleep(ctx, g.backoff(attempt)); err != nil {
			return nil, fmt.Errorf("waiting to retry %s: %w", p.Name(), err)
		}
	}

	return nil, lastErr
}

// backoff returns the wait before retry attempt+1: exponential growth from
// the initial backoff, capped, with up to 25% random jitter added.
func (g *Gateway) backoff(attempt int) time.Duration {
	d := time.Duration(float64(g.retry.InitialBackoff) * math.Pow(2, float64(attempt)))
	if d > g.retry.MaxBackoff {
		d = g.retry.MaxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
