package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/kalambet/underwrite/internal/prompt"
	"github.com/kalambet/underwrite/internal/provider"
)

type stubInvoker struct {
	content string
	err     error
	calls   int
}

func (s *stubInvoker) Invoke(ctx context.Context, req provider.Request) (*provider.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Response{Content: s.content, Provider: "stub"}, nil
}

func TestHardshipCheck_EmptyDescriptionFails(t *testing.T) {
	gw := &stubInvoker{}
	check := newHardshipCheck(gw, prompt.NewDefaultRegistry())

	in := testInput()
	in.Contact.HardshipDescription = "   "

	got := check.Evaluate(context.Background(), in)
	if got.Status != StatusFail {
		t.Errorf("status = %s, want fail", got.Status)
	}
	if gw.calls != 0 {
		t.Errorf("gateway calls = %d, want 0 for empty description", gw.calls)
	}
}

func TestHardshipCheck_AIAssessmentPassthrough(t *testing.T) {
	gw := &stubInvoker{content: `{"is_valid": true, "confidence": 0.85, "category": "medical", "reasoning": "documented medical hardship"}`}
	check := newHardshipCheck(gw, prompt.NewDefaultRegistry())

	in := testInput()
	in.Contact.HardshipDescription = "ongoing medical bills after surgery"

	got := check.Evaluate(context.Background(), in)
	if got.Status != StatusPass {
		t.Errorf("status = %s, want pass", got.Status)
	}
	if got.Evidence["confidence"] != "0.85" {
		t.Errorf("confidence evidence = %q, want 0.85", got.Evidence["confidence"])
	}
	if got.Message != "documented medical hardship" {
		t.Errorf("message = %q, want model reasoning", got.Message)
	}
}

func TestHardshipCheck_AIRejectionFails(t *testing.T) {
	gw := &stubInvoker{content: `{"is_valid": false, "confidence": 0.9, "reasoning": "not a financial hardship"}`}
	check := newHardshipCheck(gw, prompt.NewDefaultRegistry())

	in := testInput()
	in.Contact.HardshipDescription = "I want a new car"

	if got := check.Evaluate(context.Background(), in); got.Status != StatusFail {
		t.Errorf("status = %s, want fail", got.Status)
	}
}

func TestHardshipCheck_FallbackOnProviderFailure(t *testing.T) {
	gw := &stubInvoker{err: errors.New("all providers exhausted")}
	check := newHardshipCheck(gw, prompt.NewDefaultRegistry())

	t.Run("keyword match passes", func(t *testing.T) {
		in := testInput()
		in.Contact.HardshipDescription = "job loss after company layoff"
		got := check.Evaluate(context.Background(), in)
		if got.Status != StatusPass {
			t.Errorf("status = %s, want pass via keyword fallback (%s)", got.Status, got.Message)
		}
	})

	t.Run("very short description fails", func(t *testing.T) {
		in := testInput()
		in.Contact.HardshipDescription = "help"
		if got := check.Evaluate(context.Background(), in); got.Status != StatusFail {
			t.Errorf("status = %s, want fail for sub-10-char description", got.Status)
		}
	})

	t.Run("plain description still passes", func(t *testing.T) {
		in := testInput()
		in.Contact.HardshipDescription = "things have been difficult lately"
		if got := check.Evaluate(context.Background(), in); got.Status != StatusPass {
			t.Errorf("status = %s, want pass (benefit of the doubt)", got.Status)
		}
	})
}
