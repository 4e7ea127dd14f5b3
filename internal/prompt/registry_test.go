package prompt

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistry_RegisterDuplicateFails(t *testing.T) {
	r := NewRegistry()
	tpl := &Template{ID: "greet", Version: "1.0", Body: "hello {{ name }}", Required: []string{"name"}}

	if err := r.Register(tpl); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(tpl); err == nil {
		t.Fatal("Register() duplicate error = nil, want error")
	}
}

func TestRegistry_RegisterReservedVersionFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Template{ID: "greet", Version: Latest, Body: "hi"}); err == nil {
		t.Fatal("Register() with reserved version = nil, want error")
	}
}

func TestRegistry_LatestResolvesHighestVersion(t *testing.T) {
	r := NewRegistry()
	for _, v := range []string{"1.0", "2.0", "1.1"} {
		if err := r.Register(&Template{ID: "greet", Version: v, Body: "v" + v}); err != nil {
			t.Fatalf("Register(%s) error = %v", v, err)
		}
	}

	got, err := r.Get("greet", Latest)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Version != "2.0" {
		t.Errorf("latest version = %q, want 2.0", got.Version)
	}

	pinned, err := r.Get("greet", "1.1")
	if err != nil {
		t.Fatalf("Get(1.1) error = %v", err)
	}
	if pinned.Version != "1.1" {
		t.Errorf("pinned version = %q, want 1.1", pinned.Version)
	}
}

func TestRegistry_GetUnknownTemplate(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope", Latest)

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want *NotFoundError", err)
	}
}

func TestRegistry_RenderSubstitutesVariables(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Template{
		ID:       "greet",
		Version:  "1.0",
		System:   "be polite",
		Body:     "hello {{ name }}, you owe {{ amount }}",
		Required: []string{"name", "amount"},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	out, err := r.Render("greet", "1.0", map[string]any{"name": "Ada", "amount": 42})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.Prompt != "hello Ada, you owe 42" {
		t.Errorf("Prompt = %q", out.Prompt)
	}
	if out.System != "be polite" {
		t.Errorf("System = %q", out.System)
	}
}

func TestRegistry_RenderMissingVariable(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Template{
		ID:       "greet",
		Version:  "1.0",
		Body:     "hello {{ name }} from {{ city }}",
		Required: []string{"name", "city"},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := r.Render("greet", "1.0", map[string]any{"name": "Ada"})

	var missing *MissingVariableError
	if !errors.As(err, &missing) {
		t.Fatalf("error type = %T, want *MissingVariableError", err)
	}
	if len(missing.Missing) != 1 || missing.Missing[0] != "city" {
		t.Errorf("Missing = %v, want [city]", missing.Missing)
	}
}

func TestDefaultRegistry_BuiltinsRender(t *testing.T) {
	r := NewDefaultRegistry()

	out, err := r.Render("contract_extraction", Latest, map[string]any{
		"document_text": "AGREEMENT between parties",
	})
	if err != nil {
		t.Fatalf("Render(contract_extraction) error = %v", err)
	}
	if !strings.Contains(out.Prompt, "AGREEMENT between parties") {
		t.Error("rendered prompt does not contain the document text")
	}
	if out.Schema == nil {
		t.Error("contract extraction template has no output schema")
	}

	tpl, err := r.Get("contract_extraction", Latest)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if tpl.Version != "2.0" {
		t.Errorf("latest contract_extraction = %q, want 2.0", tpl.Version)
	}

	if _, err := r.Render("hardship_assessment", Latest, map[string]any{
		"hardship_description": "job loss",
	}); err != nil {
		t.Fatalf("Render(hardship_assessment) error = %v", err)
	}

	if _, err := r.Render("schema_repair", Latest, map[string]any{
		"raw_output":    "{broken",
		"problems":      "unbalanced braces",
		"expected_keys": "sender_ip, signer_ip",
	}); err != nil {
		t.Fatalf("Render(schema_repair) error = %v", err)
	}
}
