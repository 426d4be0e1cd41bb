package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/TicketForge/internal/domain/triage"
)

const (
	runsResourceURI   = "ticketforge://triage/runs"
	labelsResourceURI = "ticketforge://triage/labels"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			runsResourceURI,
			"Recent Triage Runs",
			mcplib.WithResourceDescription("Summaries of the most recent triage runs"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRunsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			labelsResourceURI,
			"Triage Labels",
			mcplib.WithResourceDescription("Category, priority and sentiment vocabularies"),
			mcplib.WithMIMEType("application/json"),
		),
		handleLabelsResource,
	)
}

func (s *Server) handleRunsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Runs == nil {
		return jsonResource(req.Params.URI, `{"error":"run reader not configured"}`), nil
	}
	runs, err := s.deps.Runs.List(ctx, defaultListLimit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []triage.Summary{}
	}
	data, err := json.Marshal(runs)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

type labelSet struct {
	Categories []string `json:"categories"`
	Priorities []string `json:"priorities"`
	Sentiments []string `json:"sentiments"`
}

func handleLabelsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	data, err := json.Marshal(labelSet{
		Categories: triage.Categories,
		Priorities: triage.Priorities,
		Sentiments: triage.Sentiments,
	})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func jsonResource(uri, text string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}
}
