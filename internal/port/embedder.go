package port

import "context"

// Embedder turns ordered text into same-length ordered vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension, 0 if unknown until first use.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore stores and searches segment embedding vectors.
type VectorStore interface {
	Upsert(items []VectorItem) error

	Search(query []float32, k int) ([]VectorResult, error)

	Delete(ids []string) error

	// DeleteDocument removes every vector whose doc_id metadata matches.
	DeleteDocument(docID string) error

	Count() (int, error)
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID       string            // document id + segment id
	Vector   []float32
	Metadata map[string]string
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string
	Score    float64 // cosine similarity, higher is better
	Metadata map[string]string
}
