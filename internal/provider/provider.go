package provider

import "context"

// Request is a provider-agnostic generation request. When Schema is non-nil,
// structured JSON output is requested from the model.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	Temperature float32
	MaxTokens   int
}

// Response is the standardized provider response.
type Response struct {
	Content  string
	Provider string
	Model    string
}

// Schema describes the expected JSON output structure for structured responses.
type Schema struct {
	Type       string                    `json:"type"`
	Properties map[string]SchemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// SchemaProperty describes a single field within a Schema.
type SchemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Provider abstracts a single AI backend (Gemini, OpenRouter, or any
// chat-completion server). The gateway composes providers into a fallback
// chain; consumers depend on this interface instead of a concrete client.
type Provider interface {
	// Name returns a stable identifier used for breaker bookkeeping and logs.
	Name() string

	// Invoke sends the request and returns the model's response. Failures
	// must be classified as *TransientError or *PermanentError so the
	// gateway can decide whether to retry.
	Invoke(ctx context.Context, req Request) (*Response, error)
}
