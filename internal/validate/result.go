// Package validate runs the underwriting business-rule checks against a
// contact record and its extracted contract data. Checks are isolated
// from one another: a check that cannot be evaluated reports Error for
// itself without blocking the rest of the run.
package validate

import "time"

// Status is the outcome of a single check or a whole run.
type Status string

const (
	// StatusPass means the rule was evaluated and satisfied.
	StatusPass Status = "pass"
	// StatusFail means the rule was evaluated and violated.
	StatusFail Status = "fail"
	// StatusError means the check could not be evaluated at all. Distinct
	// from Fail so operators can tell a broken rule from a broken run.
	StatusError Status = "error"
	// StatusSkipped means the check's preconditions were not met and it
	// does not apply to this contact.
	StatusSkipped Status = "skipped"
)

// CheckResult is the outcome of one registered check.
type CheckResult struct {
	CheckID  string            `json:"check_id"`
	Status   Status            `json:"status"`
	Message  string            `json:"message"`
	Evidence map[string]string `json:"evidence,omitempty"`
}

// Run is a completed validation run.
type Run struct {
	ID         string        `json:"id"`
	ContactID  string        `json:"contact_id"`
	Overall    Status        `json:"overall_status"`
	Results    []CheckResult `json:"results"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Cached     bool          `json:"cached"`
}

// Aggregate folds check results into an overall status. Any Fail wins,
// then any Error, otherwise Pass. Skipped results are neutral.
func Aggregate(results []CheckResult) Status {
	overall := StatusPass
	for _, r := range results {
		switch r.Status {
		case StatusFail:
			return StatusFail
		case StatusError:
			overall = StatusError
		}
	}
	return overall
}
