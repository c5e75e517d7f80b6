package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
)

// mockBackend implements Backend for testing.
type mockBackend struct {
	docs     []pharmaapi.Document
	analysis *pharmaapi.Analysis
	reply    *pharmaapi.ChatResponse
	results  []pharmaapi.LiteratureResult
	err      error

	lastChat  pharmaapi.ChatRequest
	lastLimit int
}

func (m *mockBackend) ListDocuments(context.Context) ([]pharmaapi.Document, error) {
	return m.docs, m.err
}

func (m *mockBackend) GetAnalysis(_ context.Context, id string) (*pharmaapi.Analysis, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.analysis == nil || m.analysis.DocumentID != id {
		return nil, &pharmaapi.StatusError{Op: "get analysis", StatusCode: 404, Detail: "Document not found"}
	}
	return m.analysis, nil
}

func (m *mockBackend) Chat(_ context.Context, req pharmaapi.ChatRequest) (*pharmaapi.ChatResponse, error) {
	m.lastChat = req
	return m.reply, m.err
}

func (m *mockBackend) SearchLiterature(_ context.Context, _ string, limit int) ([]pharmaapi.LiteratureResult, error) {
	m.lastLimit = limit
	return m.results, m.err
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	return result
}

// extractText gets the text content from a CallToolResult.
func extractText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func sampleAnalysis() *pharmaapi.Analysis {
	return &pharmaapi.Analysis{
		DocumentID: "doc-1",
		Finance: pharmaapi.Perspective{
			"total_cost": "$2.4M",
			"cost_breakdown": map[string]any{
				"raw_materials": "$1.1M",
				"labor":         pharmaapi.NotSpecified,
			},
			"milestones": []any{"30% on signing", "70% on delivery"},
		},
		Sustainability: pharmaapi.Perspective{
			"summary": "Solvent recovery above 90%.",
		},
		Chemistry: pharmaapi.Perspective{
			"critical_steps": []any{"Microfluidic mixing"},
		},
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"list_documents", listDocumentsTool, "list_documents"},
		{"get_analysis", getAnalysisTool, "get_analysis"},
		{"chat_with_document", chatWithDocumentTool, "chat_with_document"},
		{"search_literature", searchLiteratureTool, "search_literature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	backend := &mockBackend{}
	srv := NewServer(backend, nil)

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.api != backend {
		t.Error("backend not set correctly")
	}
}

func TestHandleListDocuments(t *testing.T) {
	t.Run("documents", func(t *testing.T) {
		srv := NewServer(&mockBackend{docs: []pharmaapi.Document{
			{DocumentID: "doc-1", Filename: "lnp-spec.pdf"},
			{DocumentID: "doc-2", Filename: "supplier-contract.pdf"},
		}}, nil)
		result := callTool(t, srv.handleListDocuments, nil)
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := extractText(result)
		for _, want := range []string{"Found 2 document(s)", "lnp-spec.pdf (id: doc-1)", "supplier-contract.pdf (id: doc-2)"} {
			if !strings.Contains(text, want) {
				t.Errorf("output missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		srv := NewServer(&mockBackend{}, nil)
		result := callTool(t, srv.handleListDocuments, nil)
		if result.IsError {
			t.Error("empty list should not be an error")
		}
		if !strings.Contains(extractText(result), "No documents") {
			t.Errorf("unexpected output: %s", extractText(result))
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		srv := NewServer(&mockBackend{err: errors.New("connection refused")}, nil)
		result := callTool(t, srv.handleListDocuments, nil)
		if !result.IsError {
			t.Error("expected tool error")
		}
	})
}

func TestHandleGetAnalysis(t *testing.T) {
	srv := NewServer(&mockBackend{analysis: sampleAnalysis()}, nil)

	t.Run("all perspectives", func(t *testing.T) {
		result := callTool(t, srv.handleGetAnalysis, map[string]any{"document_id": "doc-1"})
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := extractText(result)
		for _, want := range []string{
			"## Finance", "## Sustainability", "## Chemistry/Process",
			"**total cost**: $2.4M",
			"### cost breakdown",
			"- **raw materials**: $1.1M",
			"- 70% on delivery",
			"Microfluidic mixing",
		} {
			if !strings.Contains(text, want) {
				t.Errorf("output missing %q:\n%s", want, text)
			}
		}
		if strings.Contains(text, pharmaapi.NotSpecified) {
			t.Errorf("unspecified values should be dropped:\n%s", text)
		}
	})

	t.Run("single perspective", func(t *testing.T) {
		result := callTool(t, srv.handleGetAnalysis, map[string]any{"document_id": "doc-1", "perspective": "sustainability"})
		text := extractText(result)
		if !strings.Contains(text, "Solvent recovery") {
			t.Errorf("missing sustainability summary:\n%s", text)
		}
		if strings.Contains(text, "## Finance") {
			t.Errorf("other perspectives should be omitted:\n%s", text)
		}
	})

	t.Run("unknown perspective", func(t *testing.T) {
		result := callTool(t, srv.handleGetAnalysis, map[string]any{"document_id": "doc-1", "perspective": "marketing"})
		if !result.IsError {
			t.Error("expected tool error for unknown perspective")
		}
	})

	t.Run("not found", func(t *testing.T) {
		result := callTool(t, srv.handleGetAnalysis, map[string]any{"document_id": "missing"})
		if !result.IsError {
			t.Fatal("expected tool error")
		}
		if !strings.Contains(extractText(result), "No document found") {
			t.Errorf("unexpected message: %s", extractText(result))
		}
	})

	t.Run("missing id", func(t *testing.T) {
		result := callTool(t, srv.handleGetAnalysis, map[string]any{})
		if !result.IsError {
			t.Error("expected error for missing document_id")
		}
	})
}

func TestHandleChatWithDocument(t *testing.T) {
	backend := &mockBackend{reply: &pharmaapi.ChatResponse{
		Response: "The batch size is 10,000 doses.",
		Sources:  []string{"lnp-spec.pdf p.4"},
	}}
	srv := NewServer(backend, nil)

	result := callTool(t, srv.handleChatWithDocument, map[string]any{
		"document_id": "doc-1",
		"message":     "What is the batch size?",
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := extractText(result)
	if !strings.Contains(text, "10,000 doses") || !strings.Contains(text, "- lnp-spec.pdf p.4") {
		t.Errorf("unexpected output:\n%s", text)
	}
	if backend.lastChat.DocumentID != "doc-1" || backend.lastChat.Message != "What is the batch size?" {
		t.Errorf("unexpected request: %+v", backend.lastChat)
	}
	if backend.lastChat.ConversationHistory == nil || len(backend.lastChat.ConversationHistory) != 0 {
		t.Errorf("history should be an empty list, got %v", backend.lastChat.ConversationHistory)
	}

	t.Run("blank message", func(t *testing.T) {
		result := callTool(t, srv.handleChatWithDocument, map[string]any{"document_id": "doc-1", "message": "  "})
		if !result.IsError {
			t.Error("expected error for blank message")
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		failing := NewServer(&mockBackend{err: errors.New("timeout")}, nil)
		result := callTool(t, failing.handleChatWithDocument, map[string]any{"document_id": "doc-1", "message": "hi"})
		if !result.IsError {
			t.Error("expected tool error")
		}
	})
}

func TestHandleSearchLiterature(t *testing.T) {
	backend := &mockBackend{results: []pharmaapi.LiteratureResult{
		{Content: "Ionizable lipid ratio 50:10:38.5:1.5", DocumentID: "doc-1", Filename: "lnp-spec.pdf", Score: 0.87},
	}}
	srv := NewServer(backend, nil)

	t.Run("default limit", func(t *testing.T) {
		result := callTool(t, srv.handleSearchLiterature, map[string]any{"query": "lipid ratio"})
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if backend.lastLimit != defaultSearchLimit {
			t.Errorf("limit = %d, want %d", backend.lastLimit, defaultSearchLimit)
		}
		text := extractText(result)
		for _, want := range []string{"Found 1 result(s)", "File: lnp-spec.pdf", "Score: 0.87", "50:10:38.5:1.5"} {
			if !strings.Contains(text, want) {
				t.Errorf("output missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("explicit limit", func(t *testing.T) {
		callTool(t, srv.handleSearchLiterature, map[string]any{"query": "lipid", "limit": float64(2)})
		if backend.lastLimit != 2 {
			t.Errorf("limit = %d, want 2", backend.lastLimit)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		result := callTool(t, srv.handleSearchLiterature, map[string]any{})
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("no results", func(t *testing.T) {
		empty := NewServer(&mockBackend{}, nil)
		result := callTool(t, empty.handleSearchLiterature, map[string]any{"query": "anything"})
		if result.IsError {
			t.Error("empty results should not be an error")
		}
	})
}
