package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/underwrite/internal/service"
	"github.com/kalambet/underwrite/internal/storage"
	"github.com/kalambet/underwrite/internal/validate"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Runner Runner
	Ref    *validate.RefData
}

// NewMCPServer creates an MCP server exposing contract validation as tools
// plus the underwriting reference tables as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"underwrite",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("underwrite validates debt-settlement contracts against contact records and underwriting rules."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("validate_contract",
			mcp.WithDescription("Run the full validation pipeline for one contact's contract document."),
			mcp.WithString("contact_id", mcp.Description("CRM contact id"), mcp.Required()),
			mcp.WithString("document_base64", mcp.Description("Contract PDF, base64 encoded")),
			mcp.WithString("document_url", mcp.Description("URL to fetch the contract PDF from")),
		),
		mcpValidateContract(deps),
	)

	s.AddTool(
		mcp.NewTool("get_run",
			mcp.WithDescription("Fetch a previously completed validation run by id."),
			mcp.WithString("run_id", mcp.Description("Validation run id"), mcp.Required()),
		),
		mcpGetRun(deps),
	)

	s.AddTool(
		mcp.NewTool("list_runs",
			mcp.WithDescription("List recent validation runs, newest first."),
			mcp.WithString("contact_id", mcp.Description("Filter by contact id")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 10)")),
		),
		mcpListRuns(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"underwrite://reference",
			"Underwriting Reference Data",
			mcp.WithResourceDescription("State company assignments, draft windows and thresholds as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceReference(deps),
	)

	return s
}

func mcpValidateContract(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contactID, err := req.RequireString("contact_id")
		if err != nil {
			return mcpError("contact_id is required"), nil
		}

		docB64 := req.GetString("document_base64", "")
		docURL := req.GetString("document_url", "")
		if docB64 == "" && docURL == "" {
			return mcpError("one of document_base64 or document_url is required"), nil
		}

		var doc []byte
		if docB64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(docB64)
			if err != nil {
				return mcpError("invalid base64 document"), nil
			}
			doc = decoded
		}

		run, err := deps.Runner.Validate(ctx, service.Request{
			ContactID:   contactID,
			Document:    doc,
			DocumentURL: docURL,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("validation failed: %v", err)), nil
		}

		b, err := json.Marshal(run)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal run: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpGetRun(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runID, err := req.RequireString("run_id")
		if err != nil {
			return mcpError("run_id is required"), nil
		}

		run, err := deps.Runner.GetRun(runID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("run %s not found", runID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get run: %v", err)), nil
		}

		b, err := json.Marshal(run)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal run: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpListRuns(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contactID := req.GetString("contact_id", "")

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		runs, err := deps.Runner.ListRuns(contactID, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list runs: %v", err)), nil
		}

		if len(runs) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(runs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal runs: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpResourceReference(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Ref)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reference data: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
