package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"topicseg/internal/adapter/segmenter"
	"topicseg/internal/domain"
	"topicseg/internal/port"
)

var (
	// ErrEmbeddingMismatch means the embedder returned a different number of
	// vectors than units, or vectors of differing dimension.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrDegenerateEmbedding means a unit embedded to an all-zero vector. Cosine
	// similarity is undefined for it, so the whole profile would be corrupt.
	ErrDegenerateEmbedding = errors.New("degenerate embedding")
)

// SegmentUseCase runs the embed, detect, build pipeline for one document and
// optionally enriches the resulting segments.
type SegmentUseCase struct {
	embedder port.Embedder
	detector *segmenter.Detector
	builder  *segmenter.Builder
	enricher port.Enricher
	logger   *slog.Logger
}

// NewSegmentUseCase validates cfg up front. enricher may be nil.
func NewSegmentUseCase(
	embedder port.Embedder,
	cfg segmenter.Config,
	enricher port.Enricher,
	logger *slog.Logger,
) (*SegmentUseCase, error) {
	detector, err := segmenter.NewDetector(cfg)
	if err != nil {
		return nil, err
	}
	builder, err := segmenter.NewBuilder(cfg.MinSegmentUnits)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentUseCase{
		embedder: embedder,
		detector: detector,
		builder:  builder,
		enricher: enricher,
		logger:   logger,
	}, nil
}

// Segment partitions units into topical segments. Zero units yields an empty
// result without touching the embedder. Any embedding failure fails the whole
// document; no partial segments are returned.
func (u *SegmentUseCase) Segment(ctx context.Context, units []domain.TextUnit) (*domain.SegmentationResult, error) {
	if len(units) == 0 {
		return &domain.SegmentationResult{
			Segments:   []domain.Segment{},
			Boundaries: []int{},
		}, nil
	}

	vectors, err := u.embed(ctx, units)
	if err != nil {
		return nil, err
	}

	detection := u.detector.Detect(vectors)
	segments, err := u.builder.Build(units, detection.Boundaries)
	if err != nil {
		return nil, fmt.Errorf("failed to build segments: %w", err)
	}

	u.logger.Debug("segmented document",
		"units", len(units),
		"boundaries", len(detection.Boundaries),
		"segments", len(segments),
		"threshold", detection.Threshold,
	)

	if u.enricher != nil {
		u.enrich(ctx, segments)
	}

	return &domain.SegmentationResult{
		Segments:   segments,
		Boundaries: detection.Boundaries,
		Profile:    detection.Profile,
		Threshold:  detection.Threshold,
		Vectors:    vectors,
	}, nil
}

func (u *SegmentUseCase) embed(ctx context.Context, units []domain.TextUnit) ([][]float32, error) {
	texts := make([]string, len(units))
	for i, unit := range units {
		texts[i] = unit.Text
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d units: %w", len(units), err)
	}
	if len(vectors) != len(units) {
		return nil, fmt.Errorf("%w: %d vectors for %d units", ErrEmbeddingMismatch, len(vectors), len(units))
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: unit %d has dimension %d, expected %d", ErrEmbeddingMismatch, i, len(v), dim)
		}
		if isZero(v) {
			return nil, fmt.Errorf("%w: unit %d (%q)", ErrDegenerateEmbedding, i, truncate(units[i].Text, 40))
		}
	}
	return vectors, nil
}

// enrich attaches enrichment to each segment. Failures leave whatever the
// enricher managed to produce and are logged, never returned.
func (u *SegmentUseCase) enrich(ctx context.Context, segments []domain.Segment) {
	for i := range segments {
		if ctx.Err() != nil {
			return
		}
		e, err := u.enricher.Enrich(ctx, segments[i].Text)
		if err != nil {
			u.logger.Warn("enrichment failed", "segment", segments[i].SegmentID, "error", err)
		}
		if e.Keywords == nil {
			e.Keywords = []string{}
		}
		segments[i].Enrichment = e
	}
}

// SegmentVectors returns one mean vector per segment, in segment order.
func SegmentVectors(result *domain.SegmentationResult) [][]float32 {
	out := make([][]float32, len(result.Segments))
	for i, s := range result.Segments {
		out[i] = segmenter.MeanVector(result.Vectors[s.StartUnit:s.EndUnit])
	}
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
