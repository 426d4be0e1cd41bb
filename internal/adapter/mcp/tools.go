package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/TicketForge/internal/domain/triage"
)

const (
	defaultListLimit   = 20
	defaultSearchLimit = 3
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.triageRequestTool(),
		s.getTriageRunTool(),
		s.listTriageRunsTool(),
		s.searchKnowledgeTool(),
	)
}

func (s *Server) triageRequestTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("triage_request",
		mcplib.WithDescription("Run the triage pipeline on a customer support request and return category, priority, sentiment, a drafted response and the system confidence"),
		mcplib.WithString("text",
			mcplib.Required(),
			mcplib.Description("The customer's message"),
		),
		mcplib.WithString("context",
			mcplib.Description("Optional prior conversation context"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleTriageRequest}
}

func (s *Server) getTriageRunTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_triage_run",
		mcplib.WithDescription("Get a completed triage run, including its stage trace, by run ID"),
		mcplib.WithString("run_id",
			mcplib.Required(),
			mcplib.Description("The run ID to look up"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetTriageRun}
}

func (s *Server) listTriageRunsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_triage_runs",
		mcplib.WithDescription("List the most recent triage runs"),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum number of runs (default 20)"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListTriageRuns}
}

func (s *Server) searchKnowledgeTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("search_knowledge",
		mcplib.WithDescription("Search the support knowledge base"),
		mcplib.WithString("query",
			mcplib.Required(),
			mcplib.Description("Free-text query"),
		),
		mcplib.WithString("category",
			mcplib.Description("Optional category to boost"),
			mcplib.Enum(triage.Categories...),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum number of matches (default 3)"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSearchKnowledge}
}

func (s *Server) handleTriageRequest(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Triage == nil {
		return mcplib.NewToolResultError("triage service not configured"), nil
	}
	text, err := req.RequireString("text")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcplib.NewToolResultError("text is required"), nil
	}
	res, err := s.deps.Triage.Submit(ctx, triage.Request{
		Body:         text,
		PriorContext: req.GetString("context", ""),
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("triage failed", err), nil
	}
	return toolResultJSON(res)
}

func (s *Server) handleGetTriageRun(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Runs == nil {
		return mcplib.NewToolResultError("run reader not configured"), nil
	}
	runID, err := req.RequireString("run_id")
	if err != nil || runID == "" {
		return mcplib.NewToolResultError("run_id is required"), nil
	}
	res, err := s.deps.Runs.Get(ctx, runID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get run %s", runID), err), nil
	}
	return toolResultJSON(res)
}

func (s *Server) handleListTriageRuns(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Runs == nil {
		return mcplib.NewToolResultError("run reader not configured"), nil
	}
	runs, err := s.deps.Runs.List(ctx, req.GetInt("limit", defaultListLimit))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list runs", err), nil
	}
	if runs == nil {
		runs = []triage.Summary{}
	}
	return toolResultJSON(runs)
}

func (s *Server) handleSearchKnowledge(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Knowledge == nil {
		return mcplib.NewToolResultError("knowledge base not configured"), nil
	}
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}
	limit := req.GetInt("limit", defaultSearchLimit)
	if limit < 1 {
		limit = defaultSearchLimit
	}
	matches, err := s.deps.Knowledge.Retrieve(ctx, query, req.GetString("category", ""), limit)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("knowledge search failed", err), nil
	}
	return toolResultJSON(matches)
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
