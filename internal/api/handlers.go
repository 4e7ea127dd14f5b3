// Package api exposes the validation pipeline over HTTP and MCP.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/underwrite/internal/extract"
	"github.com/kalambet/underwrite/internal/prompt"
	"github.com/kalambet/underwrite/internal/provider"
	"github.com/kalambet/underwrite/internal/service"
	"github.com/kalambet/underwrite/internal/storage"
	"github.com/kalambet/underwrite/internal/validate"
)

// Base64 of a 20MB document plus JSON envelope.
const maxValidateBodySize = 30 << 20

// ValidateRequest asks for one contact's contract to be validated. The
// document is supplied inline (base64) or by URL.
type ValidateRequest struct {
	ContactID   string `json:"contact_id"`
	Document    string `json:"document,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`
}

// Runner abstracts the validation service for the API layer.
type Runner interface {
	Validate(ctx context.Context, req service.Request) (*validate.Run, error)
	GetRun(id string) (*validate.Run, error)
	ListRuns(contactID string, limit int) ([]*validate.Run, error)
}

// ProviderStatuser reports provider circuit states for the status endpoint.
type ProviderStatuser interface {
	Status() []provider.ProviderStatus
}

type Deps struct {
	Runner    Runner
	Templates *prompt.Registry
	Providers ProviderStatuser // optional; if nil, /status omits provider states
	Token     string
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/validate", handleValidate(deps))
		r.Get("/runs", handleListRuns(deps))
		r.Get("/runs/{id}", handleGetRun(deps))
		r.Get("/templates", handleTemplates(deps))
		r.Get("/status", handleStatus(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleValidate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxValidateBodySize)
		defer r.Body.Close()

		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.ContactID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "contact_id is required")
			return
		}
		if req.Document == "" && req.DocumentURL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "one of document or document_url is required")
			return
		}

		var doc []byte
		if req.Document != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.Document)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 document")
				return
			}
			doc = decoded
		}

		run, err := deps.Runner.Validate(r.Context(), service.Request{
			ContactID:   req.ContactID,
			Document:    doc,
			DocumentURL: req.DocumentURL,
		})
		if err != nil {
			var failure *extract.Failure
			if errors.As(err, &failure) {
				httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "document text extraction failed: %v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "validation failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
	}
}

func handleListRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		contactID := r.URL.Query().Get("contact_id")

		runs, err := deps.Runner.ListRuns(contactID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}

		if runs == nil {
			runs = []*validate.Run{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runs)
	}
}

func handleGetRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		run, err := deps.Runner.GetRun(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
	}
}

func handleTemplates(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Templates.List())
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := []provider.ProviderStatus{}
		if deps.Providers != nil {
			statuses = deps.Providers.Status()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"providers": statuses})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
