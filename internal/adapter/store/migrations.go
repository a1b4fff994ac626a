package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"topicseg/config"
)

// CurrentSchemaVersion is bumped on breaking storage changes.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				info.Version = 1
			}
		}
		if data := b.Get(keyConfigHash); data != nil {
			info.ConfigHash = string(data)
		}
		return nil
	})
	return &info, err
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		data, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, data); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash hashes every setting that changes stored segments. A
// document whose hash differs from the current one is segmented again.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		Policy          string  `json:"policy"`
		Threshold       float64 `json:"threshold"`
		K               float64 `json:"k"`
		Percentile      float64 `json:"percentile"`
		MinUnits        int     `json:"min_units"`
		MinSegmentUnits int     `json:"min_segment_units"`
		WindowSize      int     `json:"window_size"`
		SplitSentences  bool    `json:"split_sentences"`
		WindowSentences int     `json:"window_sentences"`
		EmbProvider     string  `json:"emb_provider"`
		EmbModel        string  `json:"emb_model"`
		EmbBaseURL      string  `json:"emb_base_url"`
		EmbModelDir     string  `json:"emb_model_dir"`
		EmbPooling      string  `json:"emb_pooling"`
		EmbNormalize    bool    `json:"emb_normalize"`
		EmbDimension    int     `json:"emb_dimension"`
		EnrichProvider  string  `json:"enrich_provider"`
		KeywordLimit    int     `json:"keyword_limit"`
	}{
		Policy:          cfg.Segment.Policy,
		Threshold:       cfg.Segment.Threshold,
		K:               cfg.Segment.K,
		Percentile:      cfg.Segment.Percentile,
		MinUnits:        cfg.Segment.MinUnits,
		MinSegmentUnits: cfg.Segment.MinSegmentUnits,
		WindowSize:      cfg.Segment.WindowSize,
		SplitSentences:  cfg.Input.SplitSentences,
		WindowSentences: cfg.Input.WindowSentences,
		EmbProvider:     cfg.Embedding.Provider,
		EmbModel:        cfg.Embedding.Model,
		EmbBaseURL:      cfg.Embedding.BaseURL,
		EmbModelDir:     cfg.Embedding.ModelDir,
		EmbPooling:      cfg.Embedding.Pooling,
		EmbNormalize:    cfg.Embedding.Normalize,
		EmbDimension:    cfg.Embedding.Dimension,
		EnrichProvider:  cfg.Enrich.Provider,
		KeywordLimit:    cfg.Enrich.KeywordLimit,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

func (s *BoltStore) CheckMigration(cfg *config.Config) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.ConfigHash != "" && info.ConfigHash != ComputeConfigHash(cfg) {
		result.NeedsRebuild = true
		result.Reason = "segmentation configuration changed"
	}

	return result, nil
}

// Migrate upgrades the schema step by step and records the current config hash.
func (s *BoltStore) Migrate(cfg *config.Config) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		// v1 is the initial layout; every bucket is created on open.
		return nil
	default:
		return fmt.Errorf("no migration path from v%d to v%d", from, to)
	}
}

// Clear drops all documents and segments. Runs and schema info stay; vectors
// are cleared through BoltVectorStore.Clear so its cache stays in sync.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocs, bucketSegments} {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// NeedsRebuild reports whether stored segments were produced under another configuration.
func (s *BoltStore) NeedsRebuild(cfg *config.Config) (bool, string, error) {
	result, err := s.CheckMigration(cfg)
	if err != nil {
		return false, "", err
	}
	return result.NeedsRebuild, result.Reason, nil
}
