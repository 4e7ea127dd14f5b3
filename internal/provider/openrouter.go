package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openRouterTimeout = 60 * time.Second
)

// Compile-time check that OpenRouterProvider implements Provider.
var _ Provider = (*OpenRouterProvider)(nil)

// OpenRouterProvider invokes chat models through the OpenRouter API. It acts
// as the fallback leg of the chain when Gemini is unavailable.
type OpenRouterProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenRouterProvider creates an OpenRouter-backed provider.
func NewOpenRouterProvider(apiKey, model string) *OpenRouterProvider {
	return &OpenRouterProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: openRouterBaseURL,
		httpClient: &http.Client{
			Timeout: openRouterTimeout,
		},
	}
}

// NewOpenRouterProviderWithBaseURL creates a provider pointing at a custom
// base URL (for testing).
func NewOpenRouterProviderWithBaseURL(apiKey, model, baseURL string) *OpenRouterProvider {
	p := NewOpenRouterProvider(apiKey, model)
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Schema != nil {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &PermanentError{Provider: p.Name(), Err: fmt.Errorf("marshaling request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &PermanentError{Provider: p.Name(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/kalambet/underwrite")
	httpReq.Header.Set("X-Title", "underwrite")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, p.classifyNetErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &TransientError{Provider: p.Name(), Err: statusErr}
		}
		return nil, &PermanentError{Provider: p.Name(), Err: statusErr}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &TransientError{Provider: p.Name(), Err: fmt.Errorf("decoding response: %w", err)}
	}
	if parsed.Error != nil {
		return nil, &PermanentError{Provider: p.Name(), Err: errors.New(parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &TransientError{Provider: p.Name(), Err: errors.New("response contained no choices")}
	}

	return &Response{
		Content:  parsed.Choices[0].Message.Content,
		Provider: p.Name(),
		Model:    p.model,
	}, nil
}

func (p *OpenRouterProvider) classifyNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Provider: p.Name(), Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransientError{Provider: p.Name(), Err: err}
	}
	// Connection refused and friends: the upstream may come back.
	return &TransientError{Provider: p.Name(), Err: err}
}
