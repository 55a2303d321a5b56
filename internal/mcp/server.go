// Package mcp exposes the diff engine as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jward/semdiff/internal/store"
)

// ServerName and ServerVersion identify the server to MCP clients.
const (
	ServerName    = "semdiff-mcp"
	ServerVersion = "1.0.0"
)

// Config holds what every tool call shares.
type Config struct {
	Scheme string
	Ignore []string
	// Store records runs; nil disables history and the history tool.
	Store  *store.Store
	Logger *slog.Logger
}

// Server wraps an MCP server with the semdiff tools registered.
type Server struct {
	cfg Config
	mcp *server.MCPServer
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)
	AddSemanticDiffTool(s, cfg)
	if cfg.Store != nil {
		AddHistoryTool(s, cfg.Store)
	}
	return &Server{cfg: cfg, mcp: s}
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve runs the server on stdio until ctx is done or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
