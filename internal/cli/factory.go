package cli

import (
	"fmt"
	"os"

	"topicseg/config"
	"topicseg/internal/adapter/cache"
	"topicseg/internal/adapter/embedding"
	"topicseg/internal/adapter/embedding/onnx"
	"topicseg/internal/adapter/enrich"
	"topicseg/internal/adapter/store"
	"topicseg/internal/adapter/transcript"
	"topicseg/internal/port"
	"topicseg/internal/usecase"
)

// newEmbedder builds the configured embedder behind a lazy loader, so a
// missing key or model file surfaces as ErrModelUnavailable on first use.
func newEmbedder(cfg *config.Config) port.Embedder {
	ec := cfg.Embedding
	name := ec.Provider + ":" + ec.Model

	load := func() (port.Embedder, error) {
		switch ec.Provider {
		case "openai":
			return embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.BatchSize)
		case "jina":
			return embedding.NewJinaEmbedder(ec.APIKeyEnv, ec.Model, ec.BatchSize)
		case "compat":
			return embedding.NewOpenAICompatibleEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL, ec.BatchSize)
		case "ollama":
			return embedding.NewOllamaEmbedder(ec.Model, ec.BaseURL), nil
		case "onnx":
			oc := onnx.DefaultConfig()
			oc.ModelDir = ec.ModelDir
			oc.SharedLibraryPath = ec.SharedLibrary
			oc.Pooling = ec.Pooling
			oc.Normalize = ec.Normalize
			oc.UseCUDA = ec.UseCUDA
			if ec.MaxBatchTokens > 0 {
				oc.MaxBatchTokens = ec.MaxBatchTokens
			}
			return onnx.Load(oc)
		case "mock":
			return embedding.NewMockEmbedder(ec.Dimension), nil
		default:
			return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
		}
	}

	var emb port.Embedder = embedding.NewLazyEmbedder(name, load)
	if ec.CacheSize > 0 {
		emb = cache.NewCachedEmbedder(emb, cache.NewEmbeddingCache(ec.CacheSize, ec.CacheTTL))
	}
	return emb
}

// newEnricher returns nil when enrichment is disabled.
func newEnricher(cfg *config.Config) (port.Enricher, error) {
	ec := cfg.Enrich
	switch ec.Provider {
	case "none", "":
		return nil, nil
	case "local":
		return enrich.NewLocal(ec.KeywordLimit, ec.SummarySentences, ec.SummaryChars, logger), nil
	case "openai":
		return enrich.NewOpenAIEnricher(ec.APIKeyEnv, ec.Model, ec.BaseURL, ec.KeywordLimit)
	default:
		return nil, fmt.Errorf("unsupported enrich provider: %s", ec.Provider)
	}
}

func newReader(cfg *config.Config) *transcript.Reader {
	return transcript.NewReader(transcript.Options{
		SplitSentences:  cfg.Input.SplitSentences,
		WindowSentences: cfg.Input.WindowSentences,
	})
}

func newSegmentUseCase(cfg *config.Config, emb port.Embedder, withEnrichment bool) (*usecase.SegmentUseCase, error) {
	var enricher port.Enricher
	if withEnrichment {
		var err error
		enricher, err = newEnricher(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create enricher: %w", err)
		}
	}
	return usecase.NewSegmentUseCase(emb, cfg.SegmenterConfig(), enricher, logger)
}

// stores bundles the segment database and its vector index.
type stores struct {
	segments *store.BoltStore
	vectors  *store.BoltVectorStore
}

func (s *stores) Close() error {
	return s.segments.Close()
}

// openStores opens the database under root. With migrate set, the schema is
// upgraded and a configuration change clears stored segments so they are
// rebuilt. Without it the database must already exist.
func openStores(cfg *config.Config, root string, migrate bool) (*stores, error) {
	dbPath := cfg.StorePath(root)
	if !migrate {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no segment database at %s. Run 'topicseg batch' first", dbPath)
		}
	} else if cfg.Store.Path == "" {
		if err := config.EnsureDir(root); err != nil {
			return nil, fmt.Errorf("failed to create .topicseg directory: %w", err)
		}
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, err
	}
	vs, err := store.NewBoltVectorStore(st.DB(), 0)
	if err != nil {
		st.Close()
		return nil, err
	}
	s := &stores{segments: st, vectors: vs}

	if !migrate {
		return s, nil
	}

	result, err := st.CheckMigration(cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to check migration: %w", err)
	}
	if result.NeedsRebuild {
		logger.Info("rebuilding segment database", "reason", result.Reason)
		if err := st.Clear(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to clear segments: %w", err)
		}
		if err := vs.Clear(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to clear vectors: %w", err)
		}
	} else if result.NeedsMigration {
		logger.Info("running schema migration", "reason", result.Reason)
	}
	if result.NeedsRebuild || result.NeedsMigration {
		if err := st.Migrate(cfg); err != nil {
			s.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return s, nil
}
