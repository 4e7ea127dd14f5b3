package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/underwrite/internal/validate"
)

// ContactSource provides the CRM-side contact record for validation.
type ContactSource interface {
	FetchContact(ctx context.Context, contactID string) (*validate.ContactRecord, error)
}

// Compile-time check that HTTPContactSource implements ContactSource.
var _ ContactSource = (*HTTPContactSource)(nil)

// HTTPContactSource fetches contact records from the CRM API.
type HTTPContactSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPContactSource creates a contact source for the given API.
func NewHTTPContactSource(baseURL, token string) *HTTPContactSource {
	return &HTTPContactSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchContact loads one contact record by id.
func (s *HTTPContactSource) FetchContact(ctx context.Context, contactID string) (*validate.ContactRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/contacts/"+contactID, nil)
	if err != nil {
		return nil, fmt.Errorf("building contact request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching contact %s: %w", contactID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("contact %s not found", contactID)
	default:
		return nil, fmt.Errorf("fetching contact %s: HTTP %d", contactID, resp.StatusCode)
	}

	var record validate.ContactRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decoding contact %s: %w", contactID, err)
	}
	if record.ID == "" {
		record.ID = contactID
	}
	return &record, nil
}
