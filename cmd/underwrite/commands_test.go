package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/underwrite/internal/validate"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestValidateCommand_PostsDocument(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /validate": `{"id":"run-1","contact_id":"c-1","overall_status":"pass","results":[{"check_id":"budget","status":"pass","message":"ok"}]}`,
	})

	client := ts.client()

	doc := base64.StdEncoding.EncodeToString([]byte("%PDF contract"))
	req := map[string]any{"contact_id": "c-1", "document": doc}
	resp, err := client.post(ctx, "/validate", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var run validate.Run
	if err := decodeJSON(resp, &run); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if run.ID != "run-1" || run.Overall != validate.StatusPass {
		t.Errorf("run = %+v", run)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/validate" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["contact_id"] != "c-1" {
		t.Errorf("body.contact_id = %v", body["contact_id"])
	}
	if body["document"] != doc {
		t.Errorf("body.document not forwarded verbatim")
	}
}

func TestValidateCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"validate"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing args")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestRunsList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /runs": `[{"id":"run-0001","contact_id":"c-1","overall_status":"fail","results":[],"started_at":"2026-08-01T12:00:00Z","finished_at":"2026-08-01T12:00:05Z"}]`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/runs?limit=20&contact_id=c-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var runs []validate.Run
	if err := decodeJSON(resp, &runs); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Overall != validate.StatusFail {
		t.Errorf("overall = %s, want fail", runs[0].Overall)
	}

	reqPath := ts.requests[0].Path
	if !strings.Contains(reqPath, "contact_id=c-1") {
		t.Errorf("path = %q, want contact filter", reqPath)
	}
}

func TestRunsShow_NotFound(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	client := ts.client()
	resp, err := client.get(ctx, "/runs/missing")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var run validate.Run
	err = decodeJSON(resp, &run)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to contain '404'", err.Error())
	}
}

func TestTemplatesCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /templates": `[{"id":"contract_extraction","version":"2.0","category":"extraction","required_variables":["contract_text"]}]`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/templates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var templates []struct {
		ID       string   `json:"id"`
		Version  string   `json:"version"`
		Required []string `json:"required_variables"`
	}
	if err := decodeJSON(resp, &templates); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(templates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(templates))
	}
	if templates[0].ID != "contract_extraction" || templates[0].Version != "2.0" {
		t.Errorf("template = %+v", templates[0])
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status validate.Status
		want   string
	}{
		{validate.StatusPass, colorGreen},
		{validate.StatusFail, colorRed},
		{validate.StatusError, colorYellow},
		{validate.StatusSkipped, colorCyan},
	}
	for _, tt := range tests {
		if got := statusColor(tt.status); got != tt.want {
			t.Errorf("statusColor(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/runs")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}
