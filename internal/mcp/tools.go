// Package mcp exposes segmentation and the segment database as MCP tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"topicseg/internal/adapter/transcript"
	"topicseg/internal/port"
	"topicseg/internal/usecase"
)

// RegisterTools adds every topicseg tool to the server. vectors and search may
// be nil when no segment database is available, in which case search_segments
// reports an error when called.
func RegisterTools(server *mcpserver.MCPServer, segment *usecase.SegmentUseCase, reader *transcript.Reader, store port.SegmentStore, vectors port.VectorStore, search *usecase.SearchUseCase, configHash string) *Handlers {
	h := NewHandlers(segment, reader, store, vectors, search, configHash)

	server.AddTool(mcp.Tool{
		Name:        "segment_text",
		Description: "Split a transcript or document into topically coherent segments, each with a summary, keywords and sentiment.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Transcript content",
				},
				"format": map[string]interface{}{
					"type":        "string",
					"description": "Content format: text, markdown, srt or json (default: text)",
					"enum":        []string{"text", "markdown", "srt", "json"},
					"default":     "text",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Optional document name; when set the segments are saved and can be fetched with get_segments",
				},
			},
			Required: []string{"text"},
		},
	}, h.SegmentText)

	server.AddTool(mcp.Tool{
		Name:        "list_documents",
		Description: "List documents stored in the segment database.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.ListDocuments)

	server.AddTool(mcp.Tool{
		Name:        "get_segments",
		Description: "Get the stored segments of one document.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document id from list_documents",
				},
			},
			Required: []string{"document_id"},
		},
	}, h.GetSegments)

	server.AddTool(mcp.Tool{
		Name:        "search_segments",
		Description: "Find stored segments semantically similar to a query.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to look for",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, h.SearchSegments)

	return h
}
