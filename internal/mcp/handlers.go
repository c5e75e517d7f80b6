package mcp

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
)

const defaultSearchLimit = 5

// handleListDocuments lists uploaded documents.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.api.ListDocuments(ctx)
	if err != nil {
		s.logger.Error("list documents", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}

	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents uploaded yet."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d document(s):\n\n", len(docs)))
	for _, d := range docs {
		sb.WriteString(fmt.Sprintf("- %s (id: %s)\n", d.Filename, d.DocumentID))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetAnalysis returns one or all perspectives of a document.
func (s *Server) handleGetAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}

	a, err := s.api.GetAnalysis(ctx, id)
	if err != nil {
		if pharmaapi.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("No document found with id %q.", id)), nil
		}
		s.logger.Error("get analysis", zap.String("document", id), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("fetching analysis failed: %v", err)), nil
	}

	sections := []struct {
		name, title string
		p           pharmaapi.Perspective
	}{
		{"finance", "Finance", a.Finance},
		{"sustainability", "Sustainability", a.Sustainability},
		{"chemistry", "Chemistry/Process", a.Chemistry},
	}

	only := request.GetString("perspective", "")
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Analysis: %s\n", id))
	matched := false
	for _, sec := range sections {
		if only != "" && only != sec.name {
			continue
		}
		matched = true
		sb.WriteString(fmt.Sprintf("\n## %s\n\n", sec.title))
		writePerspective(&sb, sec.p)
	}
	if !matched {
		return mcp.NewToolResultError(fmt.Sprintf("unknown perspective %q: must be one of finance, sustainability, chemistry", only)), nil
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// handleChatWithDocument asks a single question. The agent keeps its own
// conversation, so no history is sent.
func (s *Server) handleChatWithDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}
	message, err := request.RequireString("message")
	if err != nil || strings.TrimSpace(message) == "" {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}

	resp, err := s.api.Chat(ctx, pharmaapi.ChatRequest{
		DocumentID:          id,
		Message:             message,
		ConversationHistory: []pharmaapi.Message{},
	})
	if err != nil {
		s.logger.Error("chat", zap.String("document", id), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(resp.Response)
	sb.WriteString("\n")
	if len(resp.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for _, src := range resp.Sources {
			sb.WriteString(fmt.Sprintf("- %s\n", src))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchLiterature searches passages across documents.
func (s *Server) handleSearchLiterature(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.api.SearchLiterature(ctx, query, limit)
	if err != nil {
		s.logger.Error("search literature", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. Upload documents first."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// writePerspective renders a perspective as markdown: scalars as bold
// key lines, objects as sub-sections and arrays as bullets. Values equal to
// "Not specified" are dropped.
func writePerspective(sb *strings.Builder, p pharmaapi.Perspective) {
	if len(p) == 0 {
		sb.WriteString("No data.\n")
		return
	}
	for _, key := range slices.Sorted(maps.Keys(p)) {
		label := strings.ReplaceAll(key, "_", " ")
		switch p[key].(type) {
		case map[string]any:
			fields := p.Fields(key)
			if len(fields) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
			for _, f := range fields {
				sb.WriteString(fmt.Sprintf("- **%s**: %s\n", strings.ReplaceAll(f.Key, "_", " "), f.Value))
			}
			sb.WriteString("\n")
		case []any:
			items := p.List(key, 0)
			if len(items) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
			for _, item := range items {
				sb.WriteString(fmt.Sprintf("- %s\n", item))
			}
			sb.WriteString("\n")
		default:
			v := p.Text(key)
			if v == "" || v == pharmaapi.NotSpecified {
				continue
			}
			sb.WriteString(fmt.Sprintf("**%s**: %s\n\n", label, v))
		}
	}
}

// formatSearchResults converts search results into a text format suited to
// agent consumption.
func formatSearchResults(results []pharmaapi.LiteratureResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		if r.Filename != "" {
			sb.WriteString(fmt.Sprintf("File: %s\n", r.Filename))
		}
		if r.DocumentID != "" {
			sb.WriteString(fmt.Sprintf("Document: %s\n", r.DocumentID))
		}
		sb.WriteString(fmt.Sprintf("Score: %.2f\n", r.Score))
		sb.WriteString("\n")
		sb.WriteString(r.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
