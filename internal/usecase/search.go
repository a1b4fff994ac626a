package usecase

import (
	"context"
	"fmt"
	"strconv"

	"topicseg/internal/adapter/store"
	"topicseg/internal/domain"
	"topicseg/internal/port"
)

// SearchUseCase finds stored segments whose mean embedding is closest to a query.
type SearchUseCase struct {
	embedder port.Embedder
	vectors  port.VectorStore
	store    port.SegmentStore
}

func NewSearchUseCase(embedder port.Embedder, vectors port.VectorStore, segStore port.SegmentStore) *SearchUseCase {
	return &SearchUseCase{
		embedder: embedder,
		vectors:  vectors,
		store:    segStore,
	}
}

// Search returns up to k segments, best first. Hits whose document has since
// been removed are dropped.
func (u *SearchUseCase) Search(ctx context.Context, query string, k int) ([]domain.ScoredSegment, error) {
	if k <= 0 {
		k = 10
	}

	embeddings, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}

	results, err := u.vectors.Search(embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docSegments := make(map[string][]domain.Segment)
	hits := make([]domain.ScoredSegment, 0, len(results))
	for _, r := range results {
		docID := r.Metadata[store.MetaDocID]
		segID, err := strconv.Atoi(r.Metadata[store.MetaSegmentID])
		if err != nil {
			continue
		}

		segments, ok := docSegments[docID]
		if !ok {
			segments, err = u.store.GetSegments(docID)
			if err != nil {
				continue
			}
			docSegments[docID] = segments
		}
		if segID < 0 || segID >= len(segments) {
			continue
		}

		hits = append(hits, domain.ScoredSegment{
			DocID:   docID,
			Path:    r.Metadata[store.MetaPath],
			Segment: segments[segID],
			Score:   r.Score,
		})
	}
	return hits, nil
}
