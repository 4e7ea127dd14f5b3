package contract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kalambet/underwrite/internal/provider"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateOutput(t *testing.T) {
	schema := &provider.Schema{
		Type: "object",
		Properties: map[string]provider.SchemaProperty{
			"sender_ip":  {Type: "string"},
			"signatures": {Type: "object"},
		},
		Required: []string{"sender_ip", "signatures"},
	}

	problems := validateOutput(schema, map[string]any{
		"sender_ip": 42, // wrong type
		// signatures missing
	})
	if len(problems) != 2 {
		t.Fatalf("problems = %v, want 2 entries", problems)
	}
	joined := strings.Join(problems, "; ")
	if !strings.Contains(joined, "sender_ip") || !strings.Contains(joined, "signatures") {
		t.Errorf("problems = %q, want both keys mentioned", joined)
	}

	if got := validateOutput(schema, map[string]any{
		"sender_ip":  "1.2.3.4",
		"signatures": map[string]any{"applicant": "Jo"},
	}); len(got) != 0 {
		t.Errorf("problems for valid output = %v, want none", got)
	}
}

func TestFlattenOutput(t *testing.T) {
	got := flattenOutput(map[string]any{
		"sender_ip": "1.2.3.4",
		"gateway": map[string]any{
			"payment_amount":  float64(350),
			"enrollment_date": "2024-02-01",
			"missing":         nil,
		},
		"legal_plan": map[string]any{"signed": true},
		"ignored":    nil,
	})

	want := map[string]string{
		"sender_ip":               "1.2.3.4",
		"gateway.payment_amount":  "350",
		"gateway.enrollment_date": "2024-02-01",
		"legal_plan.signed":       "true",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("flattenOutput = %v, want %v", got, want)
	}
}
