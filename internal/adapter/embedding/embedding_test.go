package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"topicseg/internal/port"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(32)
	texts := []string{"the cat sat on the mat", "a dog barked", "the cat sat on the mat"}

	first, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(first))
	}
	for i := range first {
		if len(first[i]) != 32 {
			t.Errorf("vector %d has dimension %d", i, len(first[i]))
		}
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("vector %d differs between runs", i)
			}
		}
	}
	for j := range first[0] {
		if first[0][j] != first[2][j] {
			t.Fatal("identical texts produced different vectors")
		}
	}
}

func TestMockEmbedderNonZero(t *testing.T) {
	e := NewMockEmbedder(8)
	vectors, _ := e.Embed(context.Background(), []string{"...", "ok"})
	for i, v := range vectors {
		var norm float32
		for _, x := range v {
			norm += x * x
		}
		if norm == 0 {
			t.Errorf("vector %d is zero", i)
		}
	}
}

func TestLazyEmbedderLoadsOnce(t *testing.T) {
	var loads int32
	lazy := NewLazyEmbedder("mock", func() (port.Embedder, error) {
		atomic.AddInt32(&loads, 1)
		return NewMockEmbedder(16), nil
	})

	if lazy.Dimension() != 0 {
		t.Errorf("expected unknown dimension before load, got %d", lazy.Dimension())
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lazy.Embed(context.Background(), []string{"hello"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&loads); got != 1 {
		t.Errorf("expected one load, got %d", got)
	}
	if lazy.Dimension() != 16 {
		t.Errorf("expected dimension 16, got %d", lazy.Dimension())
	}
}

func TestLazyEmbedderUnavailable(t *testing.T) {
	attempts := 0
	lazy := NewLazyEmbedder("onnx", func() (port.Embedder, error) {
		attempts++
		return nil, errors.New("model.onnx: no such file")
	})

	_, err := lazy.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if err := lazy.Load(); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable from Load, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected failed loads to be retried, got %d attempts", attempts)
	}
}

func TestKnownDimension(t *testing.T) {
	if knownDimension("text-embedding-3-large") != 3072 {
		t.Error("expected 3072 for text-embedding-3-large")
	}
	if knownDimension("custom") != 0 {
		t.Error("expected 0 for unknown model")
	}
}

func TestOpenAIEmbedderRequiresKey(t *testing.T) {
	t.Setenv("TOPICSEG_TEST_MISSING_KEY", "")
	if _, err := NewOpenAIEmbedder("TOPICSEG_TEST_MISSING_KEY", "text-embedding-3-small", 0); err == nil {
		t.Error("expected error when the API key is missing")
	}
}
