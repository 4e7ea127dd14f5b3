package contract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kalambet/underwrite/internal/prompt"
	"github.com/kalambet/underwrite/internal/provider"
)

const (
	aiConfidence       = 0.9
	repairedConfidence = 0.7
)

// Invoker sends a generation request through the provider chain.
type Invoker interface {
	Invoke(ctx context.Context, req provider.Request) (*provider.Response, error)
}

// Renderer resolves and renders prompt templates.
type Renderer interface {
	Render(id, version string, vars map[string]any) (*prompt.Rendered, error)
}

// Extractor produces structured contract data from document text. It is
// total: every failure path degrades to fallback-filled fields instead of
// returning an error, so validation always has a complete field set to
// work with.
type Extractor struct {
	gateway Invoker
	prompts Renderer
	version string
	logger  *slog.Logger
}

// NewExtractor creates an extractor using the latest extraction template.
func NewExtractor(gateway Invoker, prompts Renderer) *Extractor {
	return &Extractor{
		gateway: gateway,
		prompts: prompts,
		version: prompt.Latest,
		logger:  slog.Default(),
	}
}

// NewExtractorWithVersion pins the extraction template version.
func NewExtractorWithVersion(gateway Invoker, prompts Renderer, version string) *Extractor {
	e := NewExtractor(gateway, prompts)
	e.version = version
	return e
}

// Extract runs deterministic extraction, then the AI pass, then fills any
// remaining fields with fallback placeholders. Never returns an error.
func (e *Extractor) Extract(ctx context.Context, documentText string) *Data {
	d := NewData()
	applyDeterministic(d, documentText)

	if err := e.aiPass(ctx, d, documentText); err != nil {
		e.logger.Warn("AI extraction degraded to fallback", "error", err)
	}

	fillFallback(d)
	return d
}

func (e *Extractor) aiPass(ctx context.Context, d *Data, documentText string) error {
	rendered, err := e.prompts.Render("contract_extraction", e.version, map[string]any{
		"document_text": documentText,
	})
	if err != nil {
		return err
	}

	resp, err := e.gateway.Invoke(ctx, provider.Request{
		System: rendered.System,
		Prompt: rendered.Prompt,
		Schema: rendered.Schema,
	})
	if err != nil {
		return err
	}

	raw, decodeErr := decodeOutput(resp.Content)
	var problems []string
	if decodeErr != nil {
		problems = []string{decodeErr.Error()}
	} else {
		problems = validateOutput(rendered.Schema, raw)
	}

	confidence := aiConfidence
	if len(problems) > 0 {
		raw, err = e.repair(ctx, resp.Content, problems, rendered.Schema)
		if err != nil {
			return err
		}
		confidence = repairedConfidence
	}

	for key, value := range flattenOutput(raw) {
		d.Set(key, Field{Value: value, Source: SourceAI, Confidence: confidence})
	}
	return nil
}

// repair gives the model exactly one chance to fix invalid output. A
// second failure abandons the AI pass.
func (e *Extractor) repair(ctx context.Context, rawOutput string, problems []string, schema *provider.Schema) (map[string]any, error) {
	e.logger.Warn("extraction output failed validation, attempting repair",
		"problems", strings.Join(problems, "; "))

	expected := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		expected = append(expected, name)
	}

	rendered, err := e.prompts.Render("schema_repair", prompt.Latest, map[string]any{
		"raw_output":    rawOutput,
		"problems":      strings.Join(problems, "\n"),
		"expected_keys": strings.Join(expected, ", "),
	})
	if err != nil {
		return nil, err
	}

	resp, err := e.gateway.Invoke(ctx, provider.Request{
		System: rendered.System,
		Prompt: rendered.Prompt,
		Schema: schema,
	})
	if err != nil {
		return nil, err
	}

	raw, err := decodeOutput(resp.Content)
	if err != nil {
		return nil, err
	}
	if remaining := validateOutput(schema, raw); len(remaining) > 0 {
		return nil, &RepairFailedError{Problems: remaining}
	}
	return raw, nil
}

// RepairFailedError reports that the single repair attempt still produced
// invalid output.
type RepairFailedError struct {
	Problems []string
}

func (e *RepairFailedError) Error() string {
	return "repaired output still invalid: " + strings.Join(e.Problems, "; ")
}

// fillFallback pads every canonical field the other passes did not
// produce, so downstream checks can distinguish "absent" from "missing
// key" without nil handling.
func fillFallback(d *Data) {
	for _, key := range FieldKeys {
		d.Set(key, Field{Value: "", Source: SourceFallback, Confidence: 0})
	}
}
