package contract

import "testing"

func TestData_SetRankGating(t *testing.T) {
	d := NewData()

	if !d.Set("sender_ip", Field{Value: "1.2.3.4", Source: SourceAI, Confidence: 0.9}) {
		t.Fatal("Set(ai) on empty = false, want true")
	}

	// Fallback never overwrites a real value.
	if d.Set("sender_ip", Field{Value: "", Source: SourceFallback}) {
		t.Error("Set(fallback) over ai = true, want false")
	}
	if got := d.Value("sender_ip"); got != "1.2.3.4" {
		t.Errorf("Value = %q, want 1.2.3.4", got)
	}

	// Deterministic outranks ai.
	if !d.Set("sender_ip", Field{Value: "5.6.7.8", Source: SourceDeterministic, Confidence: 1}) {
		t.Error("Set(deterministic) over ai = false, want true")
	}

	// AI cannot claw back a deterministic value.
	if d.Set("sender_ip", Field{Value: "9.9.9.9", Source: SourceAI}) {
		t.Error("Set(ai) over deterministic = true, want false")
	}
	if got := d.Value("sender_ip"); got != "5.6.7.8" {
		t.Errorf("Value = %q, want 5.6.7.8", got)
	}
}

func TestData_SetSameRankKeepsFirst(t *testing.T) {
	d := NewData()
	d.Set("agreement.ssn", Field{Value: "123-45-6789", Source: SourceAI})

	if d.Set("agreement.ssn", Field{Value: "999-99-9999", Source: SourceAI}) {
		t.Error("Set with equal rank = true, want false")
	}
	if got := d.Value("agreement.ssn"); got != "123-45-6789" {
		t.Errorf("Value = %q, want first write preserved", got)
	}
}

func TestData_Has(t *testing.T) {
	d := NewData()
	d.Set("signer_ip", Field{Value: "1.1.1.1", Source: SourceAI})
	d.Set("sender_ip", Field{Value: "", Source: SourceFallback})

	if !d.Has("signer_ip") {
		t.Error("Has(signer_ip) = false, want true")
	}
	if d.Has("sender_ip") {
		t.Error("Has(fallback field) = true, want false")
	}
	if d.Has("never_set") {
		t.Error("Has(absent) = true, want false")
	}
}

func TestApplyDeterministic(t *testing.T) {
	text := `Settlement Agreement
Sender IP Address: 203.0.113.10
Signed by applicant from 198.51.100.24
SSN: 123-45-6789
Routing Number: 021000021
Date of Birth: 1985-03-14
Enrollment Date: 2024-02-01`

	d := NewData()
	applyDeterministic(d, text)

	want := map[string]string{
		"sender_ip":                   "203.0.113.10",
		"signer_ip":                   "198.51.100.24",
		"agreement.ssn":               "123-45-6789",
		"bank_details.routing_number": "021000021",
		"agreement.date_of_birth":     "1985-03-14",
		"gateway.enrollment_date":     "2024-02-01",
	}
	for key, val := range want {
		f, ok := d.Get(key)
		if !ok {
			t.Errorf("field %s not extracted", key)
			continue
		}
		if f.Value != val {
			t.Errorf("%s = %q, want %q", key, f.Value, val)
		}
		if f.Source != SourceDeterministic || f.Confidence != 1.0 {
			t.Errorf("%s provenance = %s/%v, want deterministic/1.0", key, f.Source, f.Confidence)
		}
	}
}

func TestApplyDeterministic_NoMatches(t *testing.T) {
	d := NewData()
	applyDeterministic(d, "nothing recognizable here")
	if len(d.Keys()) != 0 {
		t.Errorf("extracted %v from noise, want nothing", d.Keys())
	}
}
