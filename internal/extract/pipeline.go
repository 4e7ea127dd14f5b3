package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// minViableText is the minimum trimmed length below which an extraction
// is considered unusable.
const minViableText = 50

// Candidate is the outcome of one extraction method. Every method run
// produces exactly one candidate, failed or not.
type Candidate struct {
	Method string  `json:"method"`
	Text   string  `json:"-"`
	Score  float64 `json:"score"`
	Err    error   `json:"-"`
}

// Result is the chosen extraction plus the full candidate set for
// diagnostics.
type Result struct {
	Text       string
	Method     string
	Score      float64
	Candidates []Candidate
}

// Failure reports that no method produced usable text. It carries every
// method's terminal error so the caller can log the whole picture.
type Failure struct {
	Candidates []Candidate
}

func (e *Failure) Error() string {
	parts := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		switch {
		case c.Err != nil:
			parts = append(parts, fmt.Sprintf("%s: %v", c.Method, c.Err))
		default:
			parts = append(parts, fmt.Sprintf("%s: text too short", c.Method))
		}
	}
	return "all extraction methods failed: " + strings.Join(parts, "; ")
}

// Pipeline runs every method concurrently and selects the best result.
// The zero set of methods is replaced by the built-in PDF chain.
type Pipeline struct {
	methods []Method
	logger  *slog.Logger
}

// NewPipeline creates a pipeline with the default method chain. Method
// order doubles as tie-break priority.
func NewPipeline() *Pipeline {
	return &Pipeline{
		methods: []Method{plainTextMethod{}, rowTextMethod{}, rawTextMethod{}},
		logger:  slog.Default(),
	}
}

// NewPipelineWithMethods creates a pipeline with an explicit method chain.
func NewPipelineWithMethods(methods ...Method) *Pipeline {
	return &Pipeline{methods: methods, logger: slog.Default()}
}

// Extract runs all methods on the document bytes and returns the highest
// scoring candidate. Equal scores resolve to the earlier method in the
// chain, so results are deterministic for identical input.
func (p *Pipeline) Extract(ctx context.Context, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	candidates := make([]Candidate, len(p.methods))
	g, ctx := errgroup.WithContext(ctx)
	for i, m := range p.methods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				candidates[i] = Candidate{Method: m.Name(), Err: err}
				return nil
			}
			text, err := m.Extract(data)
			if err != nil {
				candidates[i] = Candidate{Method: m.Name(), Err: err}
				return nil
			}
			candidates[i] = Candidate{Method: m.Name(), Text: text, Score: scoreText(text)}
			return nil
		})
	}
	// Goroutines never return errors; Wait is just a barrier.
	_ = g.Wait()

	best := -1
	for i, c := range candidates {
		if c.Err != nil {
			p.logger.Warn("extraction method failed", "method", c.Method, "error", c.Err)
			continue
		}
		if best < 0 || c.Score > candidates[best].Score {
			best = i
		}
	}

	if best < 0 || len(strings.TrimSpace(candidates[best].Text)) < minViableText {
		return nil, &Failure{Candidates: candidates}
	}

	winner := candidates[best]
	p.logger.Info("extraction complete",
		"method", winner.Method,
		"score", winner.Score,
		"chars", len(winner.Text))

	return &Result{
		Text:       winner.Text,
		Method:     winner.Method,
		Score:      winner.Score,
		Candidates: candidates,
	}, nil
}
