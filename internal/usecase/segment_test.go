package usecase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"topicseg/internal/adapter/segmenter"
	"topicseg/internal/domain"
)

// clusterEmbedder maps each text to a one-hot vector keyed by its first
// letter, so texts sharing a first letter are identical in embedding space.
type clusterEmbedder struct {
	calls atomic.Int32
	err   error
	short bool // drop the last vector
}

func (e *clusterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		if t != "zero" {
			r := unicode.ToLower([]rune(strings.TrimSpace(t))[0])
			if r >= 'a' && r <= 'z' {
				v[r-'a'] = 1
			}
		}
		out[i] = v
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *clusterEmbedder) Dimension() int    { return 26 }
func (e *clusterEmbedder) ModelName() string { return "cluster" }

func unitsOf(texts ...string) []domain.TextUnit {
	units := make([]domain.TextUnit, len(texts))
	for i, t := range texts {
		units[i] = domain.TextUnit{Index: i, Text: t}
	}
	return units
}

func threeTopics() []domain.TextUnit {
	return unitsOf("A1", "A2", "A3", "A4", "B1", "B2", "B3", "B4", "C1", "C2", "C3", "C4")
}

func testConfig() segmenter.Config {
	return segmenter.Config{
		Policy:          domain.PolicyStatistical,
		K:               1.0,
		MinUnits:        3,
		MinSegmentUnits: 3,
		WindowSize:      1,
	}
}

func newTestSegmenter(t *testing.T, emb *clusterEmbedder) *SegmentUseCase {
	t.Helper()
	uc, err := NewSegmentUseCase(emb, testConfig(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return uc
}

func TestSegmentThreeTopics(t *testing.T) {
	uc := newTestSegmenter(t, &clusterEmbedder{})

	result, err := uc.Segment(context.Background(), threeTopics())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Boundaries) != 2 || result.Boundaries[0] != 4 || result.Boundaries[1] != 8 {
		t.Errorf("expected boundaries [4 8], got %v", result.Boundaries)
	}
	want := []string{"A1 A2 A3 A4", "B1 B2 B3 B4", "C1 C2 C3 C4"}
	if len(result.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(result.Segments))
	}
	for i, s := range result.Segments {
		if s.SegmentID != i || s.Text != want[i] || s.UnitCount != 4 {
			t.Errorf("segment %d: unexpected %+v", i, s)
		}
	}
	if len(result.Profile) != 11 || len(result.Vectors) != 12 {
		t.Errorf("expected diagnostics for 12 units, got profile %d vectors %d", len(result.Profile), len(result.Vectors))
	}
}

func TestSegmentEmptyInputSkipsEmbedder(t *testing.T) {
	emb := &clusterEmbedder{}
	uc := newTestSegmenter(t, emb)

	result, err := uc.Segment(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Segments) != 0 || result.Segments == nil {
		t.Errorf("expected an empty, non-nil segment list, got %v", result.Segments)
	}
	if emb.calls.Load() != 0 {
		t.Errorf("expected no embedder calls, got %d", emb.calls.Load())
	}
}

func TestSegmentSingleUnit(t *testing.T) {
	uc := newTestSegmenter(t, &clusterEmbedder{})

	result, err := uc.Segment(context.Background(), unitsOf("Only one"))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(result.Segments))
	}
	s := result.Segments[0]
	if s.StartUnit != 0 || s.EndUnit != 1 || s.Text != "Only one" {
		t.Errorf("unexpected segment %+v", s)
	}
}

func TestSegmentEmbeddingErrors(t *testing.T) {
	boom := errors.New("model crashed")

	tests := []struct {
		name  string
		emb   *clusterEmbedder
		units []domain.TextUnit
		want  error
	}{
		{"inference failure", &clusterEmbedder{err: boom}, threeTopics(), boom},
		{"count mismatch", &clusterEmbedder{short: true}, threeTopics(), ErrEmbeddingMismatch},
		{"zero vector", &clusterEmbedder{}, unitsOf("Alpha", "zero", "Beta"), ErrDegenerateEmbedding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newTestSegmenter(t, tt.emb)
			result, err := uc.Segment(context.Background(), tt.units)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if result != nil {
				t.Errorf("expected no partial result, got %+v", result)
			}
		})
	}
}

func TestSegmentDeterministic(t *testing.T) {
	uc := newTestSegmenter(t, &clusterEmbedder{})
	units := unitsOf("A", "A", "B", "A", "C", "C", "C", "D", "D", "B", "B", "B", "A")

	first, err := uc.Segment(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	second, err := uc.Segment(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Segments) != len(second.Segments) {
		t.Fatalf("segment counts differ: %d vs %d", len(first.Segments), len(second.Segments))
	}
	for i := range first.Segments {
		if first.Segments[i].StartUnit != second.Segments[i].StartUnit || first.Segments[i].EndUnit != second.Segments[i].EndUnit {
			t.Errorf("segment %d differs between runs", i)
		}
	}
}

type stubEnricher struct {
	err error
}

func (s stubEnricher) Enrich(_ context.Context, text string) (domain.Enrichment, error) {
	if s.err != nil {
		return domain.Enrichment{}, s.err
	}
	return domain.Enrichment{Summary: "about " + text[:2], Keywords: []string{"k"}, Sentiment: domain.SentimentNeutral}, nil
}

func TestSegmentEnrichment(t *testing.T) {
	uc, err := NewSegmentUseCase(&clusterEmbedder{}, testConfig(), stubEnricher{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := uc.Segment(context.Background(), threeTopics())
	if err != nil {
		t.Fatal(err)
	}
	if result.Segments[1].Summary != "about B1" || result.Segments[1].Sentiment != domain.SentimentNeutral {
		t.Errorf("expected enrichment attached, got %+v", result.Segments[1].Enrichment)
	}
}

func TestSegmentEnrichmentFailureKeepsSegments(t *testing.T) {
	uc, err := NewSegmentUseCase(&clusterEmbedder{}, testConfig(), stubEnricher{err: errors.New("offline")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := uc.Segment(context.Background(), threeTopics())
	if err != nil {
		t.Fatalf("enrichment failure must not fail segmentation: %v", err)
	}
	for _, s := range result.Segments {
		if s.Summary != "" || s.Keywords == nil || len(s.Keywords) != 0 {
			t.Errorf("expected empty enrichment, got %+v", s.Enrichment)
		}
	}
}

func TestNewSegmentUseCaseRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MinSegmentUnits = -1
	if _, err := NewSegmentUseCase(&clusterEmbedder{}, cfg, nil, nil); !errors.Is(err, segmenter.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = testConfig()
	cfg.Policy = "median"
	if _, err := NewSegmentUseCase(&clusterEmbedder{}, cfg, nil, nil); !errors.Is(err, segmenter.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSegmentVectors(t *testing.T) {
	uc := newTestSegmenter(t, &clusterEmbedder{})
	result, err := uc.Segment(context.Background(), threeTopics())
	if err != nil {
		t.Fatal(err)
	}

	means := SegmentVectors(result)
	if len(means) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(means))
	}
	if means[1]['b'-'a'] != 1 {
		t.Errorf("expected the B segment mean to be the B direction, got %v", means[1])
	}
}
