package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/underwrite/internal/validate"
)

func testRun(id string) *validate.Run {
	return &validate.Run{ID: id, Overall: validate.StatusPass}
}

func TestCache_HitSkipsComputation(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int64
	fn := func(context.Context) (*validate.Run, error) {
		calls.Add(1)
		return testRun("r1"), nil
	}

	if _, cached, err := c.GetOrCompute(context.Background(), "fp", fn); err != nil || cached {
		t.Fatalf("first call cached=%v err=%v, want fresh compute", cached, err)
	}
	run, cached, err := c.GetOrCompute(context.Background(), "fp", fn)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if !cached || run.ID != "r1" {
		t.Errorf("second call cached=%v id=%q, want cache hit for r1", cached, run.ID)
	}
	if calls.Load() != 1 {
		t.Errorf("computations = %d, want 1", calls.Load())
	}
}

func TestCache_ExpiredEntryRecomputed(t *testing.T) {
	c := New(time.Minute)
	current := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	var calls atomic.Int64
	fn := func(context.Context) (*validate.Run, error) {
		calls.Add(1)
		return testRun("r1"), nil
	}

	c.GetOrCompute(context.Background(), "fp", fn)
	current = current.Add(2 * time.Minute)

	_, cached, err := c.GetOrCompute(context.Background(), "fp", fn)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if cached {
		t.Error("cached = true after TTL expiry, want recompute")
	}
	if calls.Load() != 2 {
		t.Errorf("computations = %d, want 2", calls.Load())
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int64

	failing := func(context.Context) (*validate.Run, error) {
		calls.Add(1)
		return nil, errors.New("extraction failed")
	}
	if _, _, err := c.GetOrCompute(context.Background(), "fp", failing); err == nil {
		t.Fatal("error = nil, want propagated failure")
	}

	ok := func(context.Context) (*validate.Run, error) {
		calls.Add(1)
		return testRun("r2"), nil
	}
	run, cached, err := c.GetOrCompute(context.Background(), "fp", ok)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if cached || run.ID != "r2" {
		t.Errorf("cached=%v id=%q, want fresh successful compute", cached, run.ID)
	}
	if calls.Load() != 2 {
		t.Errorf("computations = %d, want 2", calls.Load())
	}
}

func TestCache_SingleFlightDeduplicates(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int64
	gate := make(chan struct{})

	fn := func(context.Context) (*validate.Run, error) {
		calls.Add(1)
		<-gate
		return testRun("r1"), nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*validate.Run, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, _, err := c.GetOrCompute(context.Background(), "fp", fn)
			if err != nil {
				t.Errorf("worker error = %v", err)
				return
			}
			results[i] = run
		}()
	}

	// Let the goroutines pile up behind the in-flight computation.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("computations = %d, want exactly 1 for concurrent identical fingerprints", calls.Load())
	}
	for i, run := range results {
		if run == nil || run.ID != "r1" {
			t.Errorf("worker %d run = %+v, want shared r1", i, run)
		}
	}
}

func TestCache_DistinctFingerprintsComputeSeparately(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int64
	fn := func(context.Context) (*validate.Run, error) {
		calls.Add(1)
		return testRun("r"), nil
	}

	c.GetOrCompute(context.Background(), "fp-a", fn)
	c.GetOrCompute(context.Background(), "fp-b", fn)

	if calls.Load() != 2 {
		t.Errorf("computations = %d, want 2 for distinct fingerprints", calls.Load())
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int64
	fn := func(context.Context) (*validate.Run, error) {
		calls.Add(1)
		return testRun("r1"), nil
	}

	c.GetOrCompute(context.Background(), "fp", fn)
	c.Invalidate("fp")
	_, cached, _ := c.GetOrCompute(context.Background(), "fp", fn)

	if cached {
		t.Error("cached = true after Invalidate, want recompute")
	}
	if calls.Load() != 2 {
		t.Errorf("computations = %d, want 2", calls.Load())
	}
}
