package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"topicseg/internal/adapter/segmenter"
	"topicseg/internal/port"
)

var bucketVectors = []byte("vectors")

// Metadata keys written with every segment vector.
const (
	MetaDocID     = "doc_id"
	MetaSegmentID = "segment_id"
	MetaPath      = "path"
)

// BoltVectorStore keeps segment vectors in bbolt and searches them by brute
// force over an in-memory copy.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	vectors   map[string]vectorEntry
}

type vectorEntry struct {
	vector   []float32
	metadata map[string]string
}

type storedVector struct {
	Vector   []float32         `json:"v"`
	Metadata map[string]string `json:"m,omitempty"`
}

// NewBoltVectorStore opens the vectors bucket. A dimension of 0 is taken from
// the stored vectors or, for an empty store, from the first upsert.
func NewBoltVectorStore(db *bbolt.DB, dimension int) (*BoltVectorStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	store := &BoltVectorStore{
		db:        db,
		dimension: dimension,
		vectors:   make(map[string]vectorEntry),
	}
	if err := store.loadVectors(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return store, nil
}

func (s *BoltVectorStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil
			}
			if s.dimension == 0 {
				s.dimension = len(stored.Vector)
			}
			s.vectors[string(k)] = vectorEntry{vector: stored.Vector, metadata: stored.Metadata}
			return nil
		})
	})
}

// VectorID names the vector of one segment.
func VectorID(docID string, segmentID int) string {
	return fmt.Sprintf("%s:%d", docID, segmentID)
}

func (s *BoltVectorStore) Upsert(items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dimension := s.dimension
	if dimension == 0 && len(items) > 0 {
		dimension = len(items[0].Vector)
	}

	// The cache only sees the batch once the transaction has committed.
	staged := make(map[string]vectorEntry, len(items))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, item := range items {
			if len(item.Vector) != dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", dimension, len(item.Vector))
			}

			data, err := json.Marshal(storedVector{Vector: item.Vector, Metadata: item.Metadata})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
			staged[item.ID] = vectorEntry{vector: item.Vector, metadata: item.Metadata}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.dimension = dimension
	for id, entry := range staged {
		s.vectors[id] = entry
	}
	return nil
}

// Search returns the k vectors most cosine-similar to query, best first.
func (s *BoltVectorStore) Search(query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	results := make([]port.VectorResult, 0, len(s.vectors))
	for id, entry := range s.vectors {
		results = append(results, port.VectorResult{
			ID:       id,
			Score:    segmenter.CosineSimilarity(query, entry.vector),
			Metadata: entry.metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (s *BoltVectorStore) Delete(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.vectors, id)
		}
		return nil
	})
}

func (s *BoltVectorStore) DeleteDocument(docID string) error {
	s.mu.RLock()
	var ids []string
	for id, entry := range s.vectors {
		if entry.metadata[MetaDocID] == docID {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}
	return s.Delete(ids)
}

// Clear removes every vector and forgets the dimension.
func (s *BoltVectorStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketVectors); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketVectors)
		return err
	})
	if err != nil {
		return err
	}
	s.vectors = make(map[string]vectorEntry)
	s.dimension = 0
	return nil
}

func (s *BoltVectorStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}
