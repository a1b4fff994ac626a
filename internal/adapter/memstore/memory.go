// Package memstore keeps segmentation results in memory. It backs MCP
// sessions that have no segment database and tests that do not need bolt.
package memstore

import (
	"fmt"
	"sort"
	"sync"

	"topicseg/internal/adapter/store"
	"topicseg/internal/domain"
)

type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]domain.Document
	segments map[string][]domain.Segment
	runs     map[string]domain.Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]domain.Document),
		segments: make(map[string][]domain.Segment),
		runs:     make(map[string]domain.Run),
	}
}

func (s *MemoryStore) PutDocument(doc domain.Document, segments []domain.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.segments[doc.ID] = append([]domain.Segment{}, segments...)
	return nil
}

func (s *MemoryStore) GetDocument(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	return doc, nil
}

// GetSegments returns a copy so callers cannot mutate stored results.
func (s *MemoryStore) GetSegments(docID string) ([]domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segments, ok := s.segments[docID]
	if !ok {
		return nil, fmt.Errorf("segments for %s: %w", docID, store.ErrNotFound)
	}
	return append([]domain.Segment{}, segments...), nil
}

func (s *MemoryStore) ListDocuments() ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func (s *MemoryStore) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.segments, id)
	return nil
}

func (s *MemoryStore) PutRun(run domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) ListRuns() ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
