package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"topicseg/internal/domain"
)

var (
	bucketDocs     = []byte("docs")
	bucketSegments = []byte("segments")
	bucketRuns     = []byte("runs")
	bucketMeta     = []byte("meta")
)

// ErrNotFound is returned when a document or run id is unknown.
var ErrNotFound = errors.New("not found")

// BoltStore persists documents with their segments and batch runs.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketSegments, bucketRuns, bucketMeta, bucketVectors} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type docMeta struct {
	Path       string `json:"path"`
	ModTime    int64  `json:"mod_time"`
	Format     string `json:"format"`
	UnitCount  int    `json:"unit_count"`
	ConfigHash string `json:"config_hash"`
	RunID      string `json:"run_id,omitempty"`
}

func toMeta(doc domain.Document) docMeta {
	return docMeta{
		Path:       doc.Path,
		ModTime:    doc.ModTime.UnixNano(),
		Format:     doc.Format,
		UnitCount:  doc.UnitCount,
		ConfigHash: doc.ConfigHash,
		RunID:      doc.RunID,
	}
}

func (m docMeta) document(id string) domain.Document {
	return domain.Document{
		ID:         id,
		Path:       m.Path,
		ModTime:    time.Unix(0, m.ModTime),
		Format:     m.Format,
		UnitCount:  m.UnitCount,
		ConfigHash: m.ConfigHash,
		RunID:      m.RunID,
	}
}

// PutDocument replaces a document and its segments in one transaction.
func (s *BoltStore) PutDocument(doc domain.Document, segments []domain.Segment) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(toMeta(doc))
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocs).Put([]byte(doc.ID), data); err != nil {
			return err
		}

		if segments == nil {
			segments = []domain.Segment{}
		}
		segData, err := json.Marshal(segments)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSegments).Put([]byte(doc.ID), segData)
	})
}

func (s *BoltStore) GetDocument(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = meta.document(id)
		return nil
	})
	return doc, err
}

func (s *BoltStore) GetSegments(docID string) ([]domain.Segment, error) {
	var segments []domain.Segment
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSegments).Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("segments for %s: %w", docID, ErrNotFound)
		}
		return json.Unmarshal(data, &segments)
	})
	return segments, err
}

// ListDocuments returns all documents ordered by path.
func (s *BoltStore) ListDocuments() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, meta.document(string(k)))
			return nil
		})
	})
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, err
}

func (s *BoltStore) DeleteDocument(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketDocs).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketSegments).Delete([]byte(id))
	})
}

func (s *BoltStore) PutRun(run domain.Run) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRuns).Put([]byte(run.ID), data)
	})
}

// ListRuns returns runs newest first.
func (s *BoltStore) ListRuns() ([]domain.Run, error) {
	var runs []domain.Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run domain.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return nil
			}
			runs = append(runs, run)
			return nil
		})
	})
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
