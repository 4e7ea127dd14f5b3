package provider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// stubProvider counts invocations and returns scripted results.
type stubProvider struct {
	name  string
	calls atomic.Int64
	fn    func(call int64) (*Response, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	call := s.calls.Add(1)
	return s.fn(call)
}

func alwaysFail(name string, err error) *stubProvider {
	return &stubProvider{name: name, fn: func(int64) (*Response, error) { return nil, err }}
}

func alwaysSucceed(name string) *stubProvider {
	return &stubProvider{name: name, fn: func(int64) (*Response, error) {
		return &Response{Content: "ok", Provider: name}, nil
	}}
}

func noSleep(g *Gateway) {
	g.sleep = func(ctx context.Context, d time.Duration) error { return nil }
}

func TestGateway_PrimarySuccess(t *testing.T) {
	primary := alwaysSucceed("primary")
	secondary := alwaysSucceed("secondary")
	g := NewGateway([]Provider{primary, secondary})
	noSleep(g)

	resp, err := g.Invoke(context.Background(), Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Provider != "primary" {
		t.Errorf("Provider = %q, want primary", resp.Provider)
	}
	if secondary.calls.Load() != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls.Load())
	}
}

func TestGateway_RetriesTransientThenSucceeds(t *testing.T) {
	p := &stubProvider{name: "flaky", fn: func(call int64) (*Response, error) {
		if call < 3 {
			return nil, &TransientError{Provider: "flaky", Err: errors.New("rate limited")}
		}
		return &Response{Content: "ok", Provider: "flaky"}, nil
	}}
	g := NewGateway([]Provider{p}, WithRetryPolicy(RetryPolicy{MaxAttempts: 3}))
	noSleep(g)

	resp, err := g.Invoke(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want ok", resp.Content)
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestGateway_PermanentErrorNotRetried(t *testing.T) {
	permanent := alwaysFail("primary", &PermanentError{Provider: "primary", Err: errors.New("bad api key")})
	fallback := alwaysSucceed("fallback")
	g := NewGateway([]Provider{permanent, fallback}, WithRetryPolicy(RetryPolicy{MaxAttempts: 5}))
	noSleep(g)

	resp, err := g.Invoke(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Provider != "fallback" {
		t.Errorf("Provider = %q, want fallback", resp.Provider)
	}
	if got := permanent.calls.Load(); got != 1 {
		t.Errorf("permanent provider called %d times, want exactly 1", got)
	}
}

func TestGateway_OpenCircuitSkipsTransport(t *testing.T) {
	failing := alwaysFail("primary", &TransientError{Provider: "primary", Err: errors.New("upstream 503")})
	fallback := alwaysSucceed("fallback")
	g := NewGateway(
		[]Provider{failing, fallback},
		WithRetryPolicy(RetryPolicy{MaxAttempts: 5}),
		WithBreakerConfig(BreakerConfig{FailureThreshold: 5, Window: time.Minute, Cooldown: time.Hour}),
	)
	noSleep(g)

	// First call burns through retries and opens the primary's circuit.
	if _, err := g.Invoke(context.Background(), Request{Prompt: "a"}); err != nil {
		t.Fatalf("first Invoke() error = %v", err)
	}
	if got := g.BreakerState("primary"); got != Open {
		t.Fatalf("primary breaker state = %v, want open", got)
	}
	callsAfterOpen := failing.calls.Load()

	// Second call must skip the primary entirely: zero additional transport calls.
	resp, err := g.Invoke(context.Background(), Request{Prompt: "b"})
	if err != nil {
		t.Fatalf("second Invoke() error = %v", err)
	}
	if resp.Provider != "fallback" {
		t.Errorf("Provider = %q, want fallback", resp.Provider)
	}
	if got := failing.calls.Load(); got != callsAfterOpen {
		t.Errorf("primary transport called %d more times while open, want 0", got-callsAfterOpen)
	}
}

func TestGateway_ExhaustedChainAggregatesFailures(t *testing.T) {
	p1 := alwaysFail("one", &TransientError{Provider: "one", Err: errors.New("timeout")})
	p2 := alwaysFail("two", &PermanentError{Provider: "two", Err: errors.New("invalid model")})
	g := NewGateway([]Provider{p1, p2}, WithRetryPolicy(RetryPolicy{MaxAttempts: 2}))
	noSleep(g)

	_, err := g.Invoke(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("Invoke() error = nil, want exhausted error")
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *ExhaustedError", err)
	}
	if len(exhausted.Failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(exhausted.Failures))
	}
	if exhausted.Failures[0].Provider != "one" || exhausted.Failures[1].Provider != "two" {
		t.Errorf("failure order = %q, %q; want one, two", exhausted.Failures[0].Provider, exhausted.Failures[1].Provider)
	}
}

func TestGateway_ContextCancelledStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &stubProvider{name: "primary", fn: func(int64) (*Response, error) {
		cancel()
		return nil, &TransientError{Provider: "primary", Err: errors.New("slow")}
	}}
	untouched := alwaysSucceed("fallback")
	g := NewGateway([]Provider{p, untouched})
	noSleep(g)

	if _, err := g.Invoke(ctx, Request{Prompt: "hi"}); err == nil {
		t.Fatal("Invoke() error = nil, want error after cancellation")
	}
	if untouched.calls.Load() != 0 {
		t.Error("fallback invoked after context cancellation")
	}
}
