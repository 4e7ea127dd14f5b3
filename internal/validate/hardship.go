package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/underwrite/internal/prompt"
	"github.com/kalambet/underwrite/internal/provider"
)

// Invoker sends a generation request through the provider chain.
type Invoker interface {
	Invoke(ctx context.Context, req provider.Request) (*provider.Response, error)
}

// Renderer resolves and renders prompt templates.
type Renderer interface {
	Render(id, version string, vars map[string]any) (*prompt.Rendered, error)
}

// fallbackKeywords indicate legitimate hardship when the AI assessment
// is unavailable.
var fallbackKeywords = []string{
	"job loss", "unemployment", "medical", "illness", "divorce",
	"income reduction", "disability", "layoff", "financial hardship",
	"unable to pay", "lost job", "reduced hours", "emergency",
}

// hardshipCheck assesses the contact's hardship claim with the model,
// degrading to keyword heuristics when the provider chain is down.
type hardshipCheck struct {
	gateway Invoker
	prompts Renderer
	logger  *slog.Logger
}

func newHardshipCheck(gateway Invoker, prompts Renderer) *hardshipCheck {
	return &hardshipCheck{gateway: gateway, prompts: prompts, logger: slog.Default()}
}

func (*hardshipCheck) ID() string { return "hardship" }

type hardshipAssessment struct {
	IsValid    bool    `json:"is_valid"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
	Reasoning  string  `json:"reasoning"`
}

func (c *hardshipCheck) Evaluate(ctx context.Context, in *Input) CheckResult {
	description := strings.TrimSpace(in.Contact.HardshipDescription)
	if description == "" {
		return CheckResult{
			CheckID: "hardship",
			Status:  StatusFail,
			Message: "no hardship description provided",
		}
	}

	assessment, err := c.assess(ctx, description)
	if err != nil {
		c.logger.Warn("AI hardship assessment unavailable, using keyword fallback", "error", err)
		return c.fallback(description)
	}

	status := StatusPass
	if !assessment.IsValid {
		status = StatusFail
	}
	return CheckResult{
		CheckID: "hardship",
		Status:  status,
		Message: assessment.Reasoning,
		Evidence: map[string]string{
			"confidence": fmt.Sprintf("%.2f", assessment.Confidence),
			"category":   assessment.Category,
		},
	}
}

func (c *hardshipCheck) assess(ctx context.Context, description string) (*hardshipAssessment, error) {
	rendered, err := c.prompts.Render("hardship_assessment", prompt.Latest, map[string]any{
		"hardship_description": description,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.gateway.Invoke(ctx, provider.Request{
		System: rendered.System,
		Prompt: rendered.Prompt,
		Schema: rendered.Schema,
	})
	if err != nil {
		return nil, err
	}

	var assessment hardshipAssessment
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &assessment); err != nil {
		return nil, fmt.Errorf("parsing assessment: %w", err)
	}
	return &assessment, nil
}

// fallback mirrors the keyword heuristic: very short descriptions fail,
// anything else passes, with confidence reflecting keyword hits.
func (c *hardshipCheck) fallback(description string) CheckResult {
	if len(description) < 10 {
		return CheckResult{
			CheckID:  "hardship",
			Status:   StatusFail,
			Message:  "hardship description too short or unclear (fallback assessment)",
			Evidence: map[string]string{"confidence": "0.30"},
		}
	}

	lower := strings.ToLower(description)
	var hits int
	for _, kw := range fallbackKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}

	if hits > 0 {
		confidence := 0.7 + float64(hits)*0.1
		if confidence > 1 {
			confidence = 1
		}
		return CheckResult{
			CheckID:  "hardship",
			Status:   StatusPass,
			Message:  fmt.Sprintf("valid financial hardship with %d indicators (fallback assessment)", hits),
			Evidence: map[string]string{"confidence": fmt.Sprintf("%.2f", confidence)},
		}
	}
	return CheckResult{
		CheckID:  "hardship",
		Status:   StatusPass,
		Message:  "hardship description provided (fallback assessment)",
		Evidence: map[string]string{"confidence": "0.50"},
	}
}
