package port

import "topicseg/internal/domain"

// SegmentStore persists segmented documents and batch runs.
type SegmentStore interface {
	PutDocument(doc domain.Document, segments []domain.Segment) error

	GetDocument(id string) (domain.Document, error)

	GetSegments(docID string) ([]domain.Segment, error)

	ListDocuments() ([]domain.Document, error)

	DeleteDocument(id string) error

	PutRun(run domain.Run) error

	ListRuns() ([]domain.Run, error)

	Close() error
}
