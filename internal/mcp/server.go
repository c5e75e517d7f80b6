// Package mcp exposes the PharmaFlow backend to AI agents as MCP tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Backend is the subset of the API client the tools call.
type Backend interface {
	ListDocuments(ctx context.Context) ([]pharmaapi.Document, error)
	GetAnalysis(ctx context.Context, documentID string) (*pharmaapi.Analysis, error)
	Chat(ctx context.Context, req pharmaapi.ChatRequest) (*pharmaapi.ChatResponse, error)
	SearchLiterature(ctx context.Context, query string, limit int) ([]pharmaapi.LiteratureResult, error)
}

// Server wraps an MCP server that exposes document analysis tools.
type Server struct {
	api    Backend
	logger *zap.Logger
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server backed by api.
func NewServer(api Backend, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		api:    api,
		logger: logger.Named("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"pharmaflow",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
	s.mcp.AddTool(getAnalysisTool, s.handleGetAnalysis)
	s.mcp.AddTool(chatWithDocumentTool, s.handleChatWithDocument)
	s.mcp.AddTool(searchLiteratureTool, s.handleSearchLiterature)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
