package contract

import (
	"context"
	"strings"
	"testing"

	"github.com/kalambet/underwrite/internal/prompt"
	"github.com/kalambet/underwrite/internal/provider"
)

type stubGateway struct {
	responses []string
	errs      []error
	calls     int
	requests  []provider.Request
}

func (s *stubGateway) Invoke(ctx context.Context, req provider.Request) (*provider.Response, error) {
	i := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return nil, &provider.PermanentError{Provider: "stub", Err: context.Canceled}
	}
	return &provider.Response{Content: s.responses[i], Provider: "stub"}, nil
}

const validOutput = `{
	"sender_ip": "203.0.113.10",
	"signer_ip": "198.51.100.24",
	"signatures": {"applicant": "John Doe", "co_applicant": null},
	"agreement": {"ssn": "123-45-6789", "date_of_birth": "1985-03-14", "full_name": "John Doe"},
	"gateway": {"ssn_last4": "6789", "payment_amount": 350, "enrollment_date": "2024-02-01", "first_draft_date": "2024-02-15"}
}`

func TestExtractor_ValidOutputMergedAsAI(t *testing.T) {
	gw := &stubGateway{responses: []string{validOutput}}
	e := NewExtractor(gw, prompt.NewDefaultRegistry())

	d := e.Extract(context.Background(), "no deterministic markers in this text at all")

	f, _ := d.Get("signatures.applicant")
	if f.Value != "John Doe" || f.Source != SourceAI || f.Confidence != aiConfidence {
		t.Errorf("signatures.applicant = %+v, want ai value John Doe", f)
	}
	if got := d.Value("gateway.payment_amount"); got != "350" {
		t.Errorf("payment_amount = %q, want 350", got)
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.calls)
	}

	// Canonical fields the model returned null for are fallback padded.
	co, _ := d.Get("signatures.co_applicant")
	if co.Source != SourceFallback || co.Value != "" {
		t.Errorf("co_applicant = %+v, want fallback padding", co)
	}
}

func TestExtractor_DeterministicOutranksAI(t *testing.T) {
	// Model reports a different sender IP than the document text shows.
	gw := &stubGateway{responses: []string{validOutput}}
	e := NewExtractor(gw, prompt.NewDefaultRegistry())

	d := e.Extract(context.Background(), "Sender IP: 192.0.2.77 signature agreement")

	f, _ := d.Get("sender_ip")
	if f.Value != "192.0.2.77" || f.Source != SourceDeterministic {
		t.Errorf("sender_ip = %+v, want deterministic 192.0.2.77", f)
	}
}

func TestExtractor_OneRepairAttempt(t *testing.T) {
	// First response misses required keys; the repair response is valid.
	gw := &stubGateway{responses: []string{`{"sender_ip": "1.2.3.4"}`, validOutput}}
	e := NewExtractor(gw, prompt.NewDefaultRegistry())

	d := e.Extract(context.Background(), "plain text")

	if gw.calls != 2 {
		t.Fatalf("gateway calls = %d, want 2 (extraction + one repair)", gw.calls)
	}
	if !strings.Contains(gw.requests[1].Prompt, "missing required key") {
		t.Errorf("repair prompt lacks problem description: %q", gw.requests[1].Prompt)
	}
	f, _ := d.Get("agreement.full_name")
	if f.Source != SourceAI || f.Confidence != repairedConfidence {
		t.Errorf("repaired field = %+v, want ai with repaired confidence", f)
	}
}

func TestExtractor_RepairFailureFallsBack(t *testing.T) {
	gw := &stubGateway{responses: []string{`not json at all`, `still not json`}}
	e := NewExtractor(gw, prompt.NewDefaultRegistry())

	d := e.Extract(context.Background(), "plain text")

	if gw.calls != 2 {
		t.Fatalf("gateway calls = %d, want exactly 2 (no second repair)", gw.calls)
	}
	for _, key := range FieldKeys {
		f, ok := d.Get(key)
		if !ok {
			t.Fatalf("field %s missing after fallback fill", key)
		}
		if f.Source != SourceFallback {
			t.Errorf("%s source = %s, want fallback", key, f.Source)
		}
	}
}

func TestExtractor_GatewayErrorIsTotal(t *testing.T) {
	gw := &stubGateway{errs: []error{&provider.PermanentError{Provider: "stub", Err: context.Canceled}}}
	e := NewExtractor(gw, prompt.NewDefaultRegistry())

	d := e.Extract(context.Background(), "SSN: 123-45-6789 agreement")

	// Deterministic result survives, everything else is fallback.
	f, _ := d.Get("agreement.ssn")
	if f.Value != "123-45-6789" || f.Source != SourceDeterministic {
		t.Errorf("agreement.ssn = %+v, want deterministic value", f)
	}
	sig, _ := d.Get("signatures.applicant")
	if sig.Source != SourceFallback {
		t.Errorf("signatures.applicant source = %s, want fallback", sig.Source)
	}
}

func TestExtractor_FencedOutputAccepted(t *testing.T) {
	gw := &stubGateway{responses: []string{"```json\n" + validOutput + "\n```"}}
	e := NewExtractor(gw, prompt.NewDefaultRegistry())

	d := e.Extract(context.Background(), "plain text")

	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1 (fenced output should not need repair)", gw.calls)
	}
	if got := d.Value("sender_ip"); got != "203.0.113.10" {
		t.Errorf("sender_ip = %q, want fenced JSON parsed", got)
	}
}
