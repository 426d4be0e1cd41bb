// Package mcp exposes the triage pipeline to AI agents over the Model
// Context Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
)

const endpointPath = "/mcp"

// TriageSubmitter runs one triage request.
type TriageSubmitter interface {
	Submit(ctx context.Context, req triage.Request) (*triage.Result, error)
}

// RunReader reads persisted triage runs.
type RunReader interface {
	Get(ctx context.Context, id string) (*triage.Result, error)
	List(ctx context.Context, limit int) ([]triage.Summary, error)
}

// KnowledgeSearcher scores the knowledge corpus against a query.
type KnowledgeSearcher interface {
	Retrieve(ctx context.Context, text, category string, limit int) ([]knowledge.Match, error)
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string // empty disables auth
}

// ServerDeps are the services behind the tools. Any of them may be nil;
// the corresponding tools then report "not configured".
type ServerDeps struct {
	Triage    TriageSubmitter
	Runs      RunReader
	Knowledge KnowledgeSearcher
}

// Server wraps an mcp-go server and its HTTP listener.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
	addr       string
}

// NewServer creates an MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(
			cfg.Name,
			cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Handler returns the authenticated streamable HTTP handler, mounted at /mcp.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(endpointPath, mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(endpointPath),
	))
	return AuthMiddleware(s.cfg.APIKey, mux)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen %s: %w", s.cfg.Addr, err)
	}
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()
	slog.Info("mcp server started", "addr", s.addr, "path", endpointPath)
	return nil
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string { return s.addr }

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("mcp shutdown: %w", err)
	}
	slog.Info("mcp server stopped")
	return nil
}
