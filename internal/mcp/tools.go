package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List the pharmaceutical documents uploaded to PharmaFlow, with their ids."),
)

// getAnalysisTool defines the get_analysis MCP tool.
var getAnalysisTool = mcp.NewTool("get_analysis",
	mcp.WithDescription("Get the multi-perspective analysis of a document: finance, sustainability and chemistry/process."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("Document id as returned by list_documents"),
	),
	mcp.WithString("perspective",
		mcp.Description("Return only one perspective"),
		mcp.Enum("finance", "sustainability", "chemistry"),
	),
)

// chatWithDocumentTool defines the chat_with_document MCP tool.
var chatWithDocumentTool = mcp.NewTool("chat_with_document",
	mcp.WithDescription("Ask the manufacturing assistant a question about one document. Answers cite their sources."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("Document id as returned by list_documents"),
	),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("The question to ask"),
	),
)

// searchLiteratureTool defines the search_literature MCP tool.
var searchLiteratureTool = mcp.NewTool("search_literature",
	mcp.WithDescription("Search passages across all uploaded documents."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)
