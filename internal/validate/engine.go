package validate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engine runs the registered checks concurrently with per-check
// isolation. Exactly one result per registered check is returned, in
// registration order.
type Engine struct {
	checks  []Check
	timeout time.Duration
	logger  *slog.Logger
}

// NewEngine creates an engine over an explicit check set. A timeout of
// zero disables the run-level deadline.
func NewEngine(checks []Check, timeout time.Duration) *Engine {
	return &Engine{checks: checks, timeout: timeout, logger: slog.Default()}
}

// DefaultChecks returns the full underwriting check set.
func DefaultChecks(ref *RefData, gateway Invoker, prompts Renderer) []Check {
	return []Check{
		newHardshipCheck(gateway, prompts),
		budgetCheck{},
		ipAddressCheck{},
		mailingAddressCheck{},
		signatureCheck{},
		bankDetailCheck{},
		ssnConsistencyCheck{},
		dobConsistencyCheck{ref: ref},
		legalPlanCheck{},
		addressAssignmentCheck{ref: ref},
		minimumPaymentCheck{ref: ref},
		draftTimingCheck{ref: ref},
	}
}

// CheckIDs returns the registered check ids in order. The set identifies
// the rule version for cache fingerprinting.
func (e *Engine) CheckIDs() []string {
	ids := make([]string, len(e.checks))
	for i, c := range e.checks {
		ids[i] = c.ID()
	}
	return ids
}

type checkSlot struct {
	idx    int
	result CheckResult
}

// Run evaluates every check. A panicking or erroring check yields an
// Error result for itself only; checks still running when the run
// deadline expires are marked Error with a timeout reason.
func (e *Engine) Run(ctx context.Context, in *Input) []CheckResult {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	slots := make(chan checkSlot, len(e.checks))
	for i, c := range e.checks {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("check panicked", "check", c.ID(), "panic", r)
					slots <- checkSlot{idx: i, result: CheckResult{
						CheckID: c.ID(),
						Status:  StatusError,
						Message: fmt.Sprintf("check panicked: %v", r),
					}}
				}
			}()
			slots <- checkSlot{idx: i, result: c.Evaluate(ctx, in)}
		}()
	}

	results := make([]CheckResult, len(e.checks))
	finished := make([]bool, len(e.checks))
	for remaining := len(e.checks); remaining > 0; {
		select {
		case s := <-slots:
			results[s.idx] = s.result
			finished[s.idx] = true
			remaining--
		case <-ctx.Done():
			for i, c := range e.checks {
				if !finished[i] {
					results[i] = CheckResult{
						CheckID: c.ID(),
						Status:  StatusError,
						Message: "validation run timed out before check completed",
					}
				}
			}
			return results
		}
	}
	return results
}
