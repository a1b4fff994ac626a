package embedding

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
)

// OllamaEmbedder embeds through a local Ollama server, one text per call.
type OllamaEmbedder struct {
	embed     chromem.EmbeddingFunc
	model     string
	dimension int
}

func NewOllamaEmbedder(model, baseURL string) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434/api"
	}

	dimension := 0
	switch model {
	case "nomic-embed-text":
		dimension = 768
	case "mxbai-embed-large":
		dimension = 1024
	case "all-minilm":
		dimension = 384
	}

	return &OllamaEmbedder{
		embed:     chromem.NewEmbeddingFuncOllama(model, baseURL),
		model:     model,
		dimension: dimension,
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("ollama embedding for text %d: %w", i, err)
		}
		vectors[i] = v
	}
	if e.dimension == 0 && len(vectors) > 0 {
		e.dimension = len(vectors[0])
	}
	return vectors, nil
}

func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

func (e *OllamaEmbedder) ModelName() string {
	return e.model
}
