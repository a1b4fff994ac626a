package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"topicseg/internal/adapter/output"
	"topicseg/internal/adapter/transcript"
	"topicseg/internal/domain"
	"topicseg/internal/port"
	"topicseg/internal/usecase"
)

// Handlers implements the tool callbacks.
type Handlers struct {
	segment    *usecase.SegmentUseCase
	reader     *transcript.Reader
	store      port.SegmentStore
	vectors    port.VectorStore
	search     *usecase.SearchUseCase
	configHash string
}

// NewHandlers wires the tool callbacks. vectors and search may be nil; named
// segment_text results are then stored without being searchable.
func NewHandlers(segment *usecase.SegmentUseCase, reader *transcript.Reader, store port.SegmentStore, vectors port.VectorStore, search *usecase.SearchUseCase, configHash string) *Handlers {
	return &Handlers{
		segment:    segment,
		reader:     reader,
		store:      store,
		vectors:    vectors,
		search:     search,
		configHash: configHash,
	}
}

type documentSummary struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	UnitCount int       `json:"unit_count"`
	ModTime   time.Time `json:"mod_time"`
}

type searchHit struct {
	DocumentID string   `json:"document_id"`
	Path       string   `json:"path"`
	SegmentID  int      `json:"segment_id"`
	Score      float64  `json:"score"`
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
	Summary    string   `json:"summary,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Text       string   `json:"text"`
}

// SegmentText handles the segment_text tool.
func (h *Handlers) SegmentText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	format := request.GetString("format", "text")

	units, err := h.reader.ReadString(format, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse %s input: %v", format, err)), nil
	}

	result, err := h.segment.Segment(ctx, units)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("segmentation failed: %v", err)), nil
	}

	name := request.GetString("name", "")
	if name == "" || h.store == nil {
		return jsonResult(output.NewDocument("", result.Segments))
	}

	doc := domain.Document{
		ID:         usecase.DocID(name),
		Path:       name,
		ModTime:    time.Now(),
		Format:     format,
		UnitCount:  len(units),
		ConfigHash: h.configHash,
	}
	if h.vectors != nil {
		if err := usecase.IndexSegmentVectors(h.vectors, doc, result); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to index segments: %v", err)), nil
		}
	}
	if err := h.store.PutDocument(doc, result.Segments); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save segments: %v", err)), nil
	}
	return jsonResult(struct {
		DocumentID string `json:"document_id"`
		output.Document
	}{doc.ID, output.NewDocument(name, result.Segments)})
}

// ListDocuments handles the list_documents tool.
func (h *Handlers) ListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.store == nil {
		return mcp.NewToolResultError("no segment database; run 'topicseg batch' first"), nil
	}

	docs, err := h.store.ListDocuments()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err)), nil
	}

	out := make([]documentSummary, len(docs))
	for i, d := range docs {
		out[i] = documentSummary{
			ID:        d.ID,
			Path:      d.Path,
			Format:    d.Format,
			UnitCount: d.UnitCount,
			ModTime:   d.ModTime,
		}
	}
	return jsonResult(map[string]interface{}{
		"documents": out,
		"count":     len(out),
	})
}

// GetSegments handles the get_segments tool.
func (h *Handlers) GetSegments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.store == nil {
		return mcp.NewToolResultError("no segment database; run 'topicseg batch' first"), nil
	}

	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id argument is required and must be a string"), nil
	}

	doc, err := h.store.GetDocument(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get document: %v", err)), nil
	}
	segments, err := h.store.GetSegments(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get segments: %v", err)), nil
	}

	return jsonResult(output.NewDocument(doc.Path, segments))
}

// SearchSegments handles the search_segments tool.
func (h *Handlers) SearchSegments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.search == nil {
		return mcp.NewToolResultError("no segment database; run 'topicseg batch' first"), nil
	}

	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	maxResults := request.GetInt("max_results", 5)

	results, err := h.search.Search(ctx, query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	hits := make([]searchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit{
			DocumentID: r.DocID,
			Path:       r.Path,
			SegmentID:  r.Segment.SegmentID,
			Score:      r.Score,
			Start:      r.Segment.Start,
			End:        r.Segment.End,
			Summary:    r.Segment.Summary,
			Keywords:   r.Segment.Keywords,
			Text:       r.Segment.Text,
		}
	}
	return jsonResult(map[string]interface{}{
		"query":   query,
		"results": hits,
		"count":   len(hits),
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
