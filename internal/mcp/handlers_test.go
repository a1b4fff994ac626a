package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"topicseg/internal/adapter/embedding"
	"topicseg/internal/adapter/output"
	"topicseg/internal/adapter/segmenter"
	"topicseg/internal/adapter/store"
	"topicseg/internal/adapter/transcript"
	"topicseg/internal/domain"
	"topicseg/internal/port"
	"topicseg/internal/usecase"
)

const (
	rockets = "Rocket engines burn fuel to produce thrust."
	garden  = "Tomato plants need sunny soil and water."
	piano   = "Piano chords shape every melody."
)

func threeTopicText() string {
	var paras []string
	for _, p := range []string{rockets, garden, piano} {
		for i := 0; i < 4; i++ {
			paras = append(paras, p)
		}
	}
	return strings.Join(paras, "\n\n")
}

type fixture struct {
	handlers *Handlers
	store    *store.BoltStore
	vectors  *store.BoltVectorStore
	embedder *embedding.MockEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	emb := embedding.NewMockEmbedder(1024)
	seg, err := usecase.NewSegmentUseCase(emb, segmenter.Config{
		Policy:          domain.PolicyStatistical,
		K:               1.0,
		MinUnits:        3,
		MinSegmentUnits: 3,
		WindowSize:      1,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "segments.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	vs, err := store.NewBoltVectorStore(st.DB(), 0)
	if err != nil {
		t.Fatal(err)
	}

	reader := transcript.NewReader(transcript.Options{})
	return &fixture{
		handlers: NewHandlers(seg, reader, st, vs, usecase.NewSearchUseCase(emb, vs, st), "cfg1"),
		store:    st,
		vectors:  vs,
		embedder: emb,
	}
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestSegmentText(t *testing.T) {
	f := newFixture(t)

	res, err := f.handlers.SegmentText(context.Background(), request(map[string]any{"text": threeTopicText()}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var doc output.Document
	if err := json.Unmarshal([]byte(resultText(t, res)), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(doc.Segments))
	}
	for i, s := range doc.Segments {
		if s.StartUnit != i*4 || s.EndUnit != i*4+4 {
			t.Errorf("segment %d: expected [%d, %d), got [%d, %d)", i, i*4, i*4+4, s.StartUnit, s.EndUnit)
		}
	}
}

func TestSegmentTextSavesNamedDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.handlers.SegmentText(ctx, request(map[string]any{
		"text": threeTopicText(),
		"name": "standup-notes",
	}))
	if err != nil {
		t.Fatal(err)
	}
	var saved struct {
		DocumentID string `json:"document_id"`
		Document   string `json:"document"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.DocumentID != usecase.DocID("standup-notes") || saved.Document != "standup-notes" {
		t.Fatalf("unexpected save response: %+v", saved)
	}

	segments, err := f.store.GetSegments(saved.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 3 {
		t.Errorf("expected 3 stored segments, got %d", len(segments))
	}

	doc, err := f.store.GetDocument(saved.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ConfigHash != "cfg1" {
		t.Errorf("expected config hash recorded, got %q", doc.ConfigHash)
	}
	if n, _ := f.vectors.Count(); n != 3 {
		t.Errorf("expected 3 indexed segment vectors, got %d", n)
	}

	res, err = f.handlers.SearchSegments(ctx, request(map[string]any{"query": "tomato soil", "max_results": 1}))
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Results []searchHit `json:"results"`
		Count   int         `json:"count"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Results[0].DocumentID != saved.DocumentID || out.Results[0].SegmentID != 1 {
		t.Errorf("expected the saved garden segment first, got %+v", out.Results)
	}
}

func TestSegmentTextRequiresText(t *testing.T) {
	f := newFixture(t)

	res, err := f.handlers.SegmentText(context.Background(), request(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected a tool error for missing text")
	}
}

func TestSegmentTextBadJSON(t *testing.T) {
	f := newFixture(t)

	res, err := f.handlers.SegmentText(context.Background(), request(map[string]any{
		"text":   "{not json",
		"format": "json",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected a tool error for malformed JSON input")
	}
}

func TestListAndGetSegments(t *testing.T) {
	f := newFixture(t)

	doc := domain.Document{ID: "doc1", Path: "/talks/ep1.srt", ModTime: time.Unix(100, 0), Format: "srt", UnitCount: 2}
	segments := []domain.Segment{
		{SegmentID: 0, StartUnit: 0, EndUnit: 1, UnitCount: 1, Text: rockets},
		{SegmentID: 1, StartUnit: 1, EndUnit: 2, UnitCount: 1, Text: garden},
	}
	if err := f.store.PutDocument(doc, segments); err != nil {
		t.Fatal(err)
	}

	res, err := f.handlers.ListDocuments(context.Background(), request(nil))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"doc1"`) || !strings.Contains(text, `"count": 1`) {
		t.Errorf("unexpected list output: %s", text)
	}

	res, err = f.handlers.GetSegments(context.Background(), request(map[string]any{"document_id": "doc1"}))
	if err != nil {
		t.Fatal(err)
	}
	var got output.Document
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Document != "ep1" || len(got.Segments) != 2 {
		t.Errorf("unexpected document: %+v", got)
	}

	res, err = f.handlers.GetSegments(context.Background(), request(map[string]any{"document_id": "missing"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected a tool error for an unknown document")
	}
}

func TestSearchSegments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	segments := []domain.Segment{
		{SegmentID: 0, StartUnit: 0, EndUnit: 4, UnitCount: 4, Text: rockets},
		{SegmentID: 1, StartUnit: 4, EndUnit: 8, UnitCount: 4, Text: garden},
	}
	if err := f.store.PutDocument(domain.Document{ID: "doc1", Path: "/ep1.txt"}, segments); err != nil {
		t.Fatal(err)
	}
	vectors, err := f.embedder.Embed(ctx, []string{rockets, garden})
	if err != nil {
		t.Fatal(err)
	}
	items := make([]port.VectorItem, len(segments))
	for i, s := range segments {
		items[i] = port.VectorItem{
			ID:     store.VectorID("doc1", s.SegmentID),
			Vector: vectors[i],
			Metadata: map[string]string{
				store.MetaDocID:     "doc1",
				store.MetaSegmentID: []string{"0", "1"}[i],
				store.MetaPath:      "/ep1.txt",
			},
		}
	}
	if err := f.vectors.Upsert(items); err != nil {
		t.Fatal(err)
	}

	res, err := f.handlers.SearchSegments(ctx, request(map[string]any{"query": "tomato soil", "max_results": 1}))
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Results []searchHit `json:"results"`
		Count   int         `json:"count"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Results[0].SegmentID != 1 {
		t.Errorf("expected the garden segment first, got %+v", out.Results)
	}
}

func TestToolsWithoutDatabase(t *testing.T) {
	f := newFixture(t)
	h := NewHandlers(f.handlers.segment, f.handlers.reader, nil, nil, nil, "")

	for name, call := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_documents":  h.ListDocuments,
		"get_segments":    h.GetSegments,
		"search_segments": h.SearchSegments,
	} {
		res, err := call(context.Background(), request(map[string]any{"document_id": "x", "query": "x"}))
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Errorf("%s: expected a tool error without a database", name)
		}
	}
}

func TestRegisterTools(t *testing.T) {
	f := newFixture(t)
	server := mcpserver.NewMCPServer("topicseg", "test")
	h := RegisterTools(server, f.handlers.segment, f.handlers.reader, f.store, nil, nil, "cfg1")
	if h == nil || h.store == nil || h.vectors != nil || h.search != nil {
		t.Fatalf("unexpected handlers: %+v", h)
	}
}
