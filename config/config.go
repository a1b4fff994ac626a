package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"topicseg/internal/adapter/segmenter"
	"topicseg/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. TOPICSEG_SEGMENT_K.
const EnvPrefix = "TOPICSEG_"

// Config holds all configuration for topic segmentation.
type Config struct {
	Segment   SegmentConfig   `yaml:"segment" envPrefix:"SEGMENT_"`
	Embedding EmbeddingConfig `yaml:"embedding" envPrefix:"EMBEDDING_"`
	Input     InputConfig     `yaml:"input" envPrefix:"INPUT_"`
	Enrich    EnrichConfig    `yaml:"enrich" envPrefix:"ENRICH_"`
	Batch     BatchConfig     `yaml:"batch" envPrefix:"BATCH_"`
	Store     StoreConfig     `yaml:"store" envPrefix:"STORE_"`
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOGGING_"`
}

// SegmentConfig controls boundary detection and the merge pass.
type SegmentConfig struct {
	Policy          string  `yaml:"policy" env:"POLICY"` // "fixed", "statistical", "percentile"
	Threshold       float64 `yaml:"threshold" env:"THRESHOLD"`
	K               float64 `yaml:"k" env:"K"`
	Percentile      float64 `yaml:"percentile" env:"PERCENTILE"`
	MinUnits        int     `yaml:"min_units" env:"MIN_UNITS"`
	MinSegmentUnits int     `yaml:"min_segment_units" env:"MIN_SEGMENT_UNITS"`
	WindowSize      int     `yaml:"window_size" env:"WINDOW_SIZE"`
}

// EmbeddingConfig selects and tunes the sentence embedding model.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" env:"PROVIDER"` // "openai", "jina", "compat", "ollama", "onnx", "mock"
	Model     string `yaml:"model" env:"MODEL"`
	APIKeyEnv string `yaml:"api_key_env" env:"API_KEY_ENV"`
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	BatchSize int    `yaml:"batch_size" env:"BATCH_SIZE"`
	Dimension int    `yaml:"dimension" env:"DIMENSION"` // mock only

	// onnx
	ModelDir       string `yaml:"model_dir" env:"MODEL_DIR"`
	SharedLibrary  string `yaml:"shared_library" env:"SHARED_LIBRARY"`
	MaxBatchTokens int    `yaml:"max_batch_tokens" env:"MAX_BATCH_TOKENS"`
	Pooling        string `yaml:"pooling" env:"POOLING"` // "mean", "cls"
	Normalize      bool   `yaml:"normalize" env:"NORMALIZE"`
	UseCUDA        bool   `yaml:"use_cuda" env:"USE_CUDA"`

	CacheSize int           `yaml:"cache_size" env:"CACHE_SIZE"` // 0 disables the cache
	CacheTTL  time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// InputConfig controls how transcripts become text units.
type InputConfig struct {
	SplitSentences  bool `yaml:"split_sentences" env:"SPLIT_SENTENCES"`
	WindowSentences int  `yaml:"window_sentences" env:"WINDOW_SENTENCES"`
}

// EnrichConfig selects the per-segment summary, keyword and sentiment provider.
type EnrichConfig struct {
	Provider         string `yaml:"provider" env:"PROVIDER"` // "none", "local", "openai"
	Model            string `yaml:"model" env:"MODEL"`
	APIKeyEnv        string `yaml:"api_key_env" env:"API_KEY_ENV"`
	BaseURL          string `yaml:"base_url" env:"BASE_URL"`
	KeywordLimit     int    `yaml:"keyword_limit" env:"KEYWORD_LIMIT"`
	SummarySentences int    `yaml:"summary_sentences" env:"SUMMARY_SENTENCES"`
	SummaryChars     int    `yaml:"summary_chars" env:"SUMMARY_CHARS"`
}

// BatchConfig controls directory processing.
type BatchConfig struct {
	Includes    []string `yaml:"includes" env:"INCLUDES"`
	Excludes    []string `yaml:"excludes" env:"EXCLUDES"`
	Workers     int      `yaml:"workers" env:"WORKERS"`
	Incremental bool     `yaml:"incremental" env:"INCREMENTAL"`
}

type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"` // empty means .topicseg/segments.db under the working dir
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // "text", "json"
}

func DefaultConfig() *Config {
	seg := segmenter.DefaultConfig()
	return &Config{
		Segment: SegmentConfig{
			Policy:          string(seg.Policy),
			Threshold:       seg.Threshold,
			K:               seg.K,
			Percentile:      seg.Percentile,
			MinUnits:        seg.MinUnits,
			MinSegmentUnits: seg.MinSegmentUnits,
			WindowSize:      seg.WindowSize,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			BatchSize:      100,
			Dimension:      64,
			MaxBatchTokens: 8192,
			Pooling:        "mean",
			Normalize:      true,
			CacheSize:      10000,
			CacheTTL:       time.Hour,
		},
		Input: InputConfig{
			SplitSentences:  true,
			WindowSentences: 1,
		},
		Enrich: EnrichConfig{
			Provider:         "local",
			Model:            "gpt-4o-mini",
			APIKeyEnv:        "OPENAI_API_KEY",
			KeywordLimit:     5,
			SummarySentences: 2,
			SummaryChars:     280,
		},
		Batch: BatchConfig{
			Includes:    []string{"**/*.json", "**/*.srt", "**/*.vtt", "**/*.txt", "**/*.md", "**/*.pdf"},
			Excludes:    []string{"**/.git/**", "**/.topicseg/**", "**/node_modules/**", "**/*.segments.json"},
			Workers:     4,
			Incremental: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults, then applies TOPICSEG_* environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir looks for topicseg.yaml, then .topicseg/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	for _, path := range []string{
		filepath.Join(dir, "topicseg.yaml"),
		filepath.Join(dir, ".topicseg", "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SegmenterConfig converts the segment section for the detector and builder.
func (c *Config) SegmenterConfig() segmenter.Config {
	return segmenter.Config{
		Policy:          domain.ThresholdPolicy(strings.ToLower(c.Segment.Policy)),
		Threshold:       c.Segment.Threshold,
		K:               c.Segment.K,
		Percentile:      c.Segment.Percentile,
		MinUnits:        c.Segment.MinUnits,
		MinSegmentUnits: c.Segment.MinSegmentUnits,
		WindowSize:      c.Segment.WindowSize,
	}
}

var (
	embeddingProviders = []string{"openai", "jina", "compat", "ollama", "onnx", "mock"}
	enrichProviders    = []string{"none", "local", "openai"}
	logLevels          = []string{"debug", "info", "warn", "error"}
)

// Validate fails fast on settings that would change segmentation semantics
// if silently replaced by a default.
func (c *Config) Validate() error {
	if err := c.SegmenterConfig().Validate(); err != nil {
		return err
	}
	if !oneOf(c.Embedding.Provider, embeddingProviders) {
		return fmt.Errorf("unknown embedding provider %q (want one of %s)", c.Embedding.Provider, strings.Join(embeddingProviders, ", "))
	}
	if c.Embedding.Provider == "onnx" && c.Embedding.ModelDir == "" {
		return fmt.Errorf("embedding.model_dir is required for the onnx provider")
	}
	if c.Embedding.Provider == "compat" && c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required for the compat provider")
	}
	if !oneOf(c.Enrich.Provider, enrichProviders) {
		return fmt.Errorf("unknown enrich provider %q (want one of %s)", c.Enrich.Provider, strings.Join(enrichProviders, ", "))
	}
	if c.Input.WindowSentences < 0 {
		return fmt.Errorf("input.window_sentences must be non-negative, got %d", c.Input.WindowSentences)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if !oneOf(c.Logging.Level, logLevels) {
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

func oneOf(v string, options []string) bool {
	v = strings.ToLower(v)
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// Dir is the per-project state directory.
func Dir(root string) string {
	return filepath.Join(root, ".topicseg")
}

// StorePath returns the segment database path for root.
func (c *Config) StorePath(root string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(Dir(root), "segments.db")
}

// EnsureDir creates the .topicseg directory.
func EnsureDir(root string) error {
	return os.MkdirAll(Dir(root), 0755)
}
