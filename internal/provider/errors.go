package provider

import (
	"errors"
	"fmt"
	"strings"
)

// TransientError wraps a failure that is worth retrying: timeouts, rate
// limits, and 5xx-equivalent upstream errors.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a failure that retrying cannot fix: bad credentials,
// malformed requests, unsupported models.
type PermanentError struct {
	Provider string
	Err      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: permanent: %v", e.Provider, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// CircuitOpenError is returned when a provider is skipped because its
// circuit breaker is open. No network attempt was made.
type CircuitOpenError struct {
	Provider string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("%s: circuit open, call skipped", e.Provider)
}

// ProviderFailure records the terminal failure of one provider in the chain.
type ProviderFailure struct {
	Provider string
	Err      error
}

// ExhaustedError is returned when every provider in the fallback chain
// failed. It preserves each provider's terminal failure in chain order.
type ExhaustedError struct {
	Failures []ProviderFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Provider, f.Err)
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
