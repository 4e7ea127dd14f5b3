package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Compile-time check that GeminiProvider implements Provider.
var _ Provider = (*GeminiProvider)(nil)

// GeminiProvider invokes Google's Gemini models through the official client.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider. The client is owned by
// the provider; call Close when shutting down.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Close releases the underlying client connection.
func (p *GeminiProvider) Close() error { return p.client.Close() }

func (p *GeminiProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	m := p.client.GenerativeModel(p.model)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.Schema != nil {
		m.ResponseMIMEType = "application/json"
	}
	if req.Temperature > 0 {
		m.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, p.classify(err)
	}

	text, err := geminiText(resp)
	if err != nil {
		return nil, &TransientError{Provider: p.Name(), Err: err}
	}

	return &Response{Content: text, Provider: p.Name(), Model: p.model}, nil
}

// classify maps client errors onto the gateway's retry taxonomy.
func (p *GeminiProvider) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransientError{Provider: p.Name(), Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Code == 408 || apiErr.Code >= 500:
			return &TransientError{Provider: p.Name(), Err: err}
		default:
			return &PermanentError{Provider: p.Name(), Err: err}
		}
	}

	// Network-level failures arrive untyped; treat them as retryable.
	if strings.Contains(err.Error(), "connection") || strings.Contains(err.Error(), "timeout") {
		return &TransientError{Provider: p.Name(), Err: err}
	}
	return &PermanentError{Provider: p.Name(), Err: err}
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("response contained no text parts")
	}
	return sb.String(), nil
}
