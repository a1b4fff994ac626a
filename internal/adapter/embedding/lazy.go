package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"topicseg/internal/port"
)

// ErrModelUnavailable is returned when the embedding model cannot be loaded.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Loader constructs the underlying embedder, typically loading weights or
// checking credentials.
type Loader func() (port.Embedder, error)

// LazyEmbedder defers loading until the first Embed call and then reuses the
// loaded model for its lifetime. Concurrent first calls load exactly once.
// A failed load is not cached; the next call tries again.
type LazyEmbedder struct {
	name string
	load Loader

	mu    sync.Mutex
	inner port.Embedder
}

func NewLazyEmbedder(name string, load Loader) *LazyEmbedder {
	return &LazyEmbedder{name: name, load: load}
}

func (e *LazyEmbedder) get() (port.Embedder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inner != nil {
		return e.inner, nil
	}

	inner, err := e.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, e.name, err)
	}
	if inner == nil {
		return nil, fmt.Errorf("%w: %s: loader returned no model", ErrModelUnavailable, e.name)
	}
	e.inner = inner
	return inner, nil
}

// Load forces the model to load now, so callers can fail fast at startup.
func (e *LazyEmbedder) Load() error {
	_, err := e.get()
	return err
}

func (e *LazyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	inner, err := e.get()
	if err != nil {
		return nil, err
	}
	return inner.Embed(ctx, texts)
}

func (e *LazyEmbedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inner == nil {
		return 0
	}
	return e.inner.Dimension()
}

func (e *LazyEmbedder) ModelName() string {
	return e.name
}
