// Package config loads server configuration from a TOML file with
// environment variable overrides.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults for every tunable. Environment variables use the SDKDOCS_ prefix.
// Durations are configured in milliseconds (or seconds where noted).
const (
	DefaultDBFile       = "sdkdocs.db"
	DefaultConfigFile   = "sdkdocs.toml"
	DefaultChunkMaxSize = 2000
	DefaultChunkMinSize = 200
	DefaultChunkTarget  = 1500
	DefaultOverlap      = 200
	DefaultNarrativeCap = 1500

	DefaultProvider     = "local"
	DefaultModel        = "text-embedding-3-small"
	DefaultDimension    = 1536
	DefaultBatchSize    = 100
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	DefaultBatchDelayMs = 200
	DefaultCacheSize    = 1000

	DefaultLexicalWeight    = 0.4
	DefaultSemanticWeight   = 0.6
	DefaultSearchLimit      = 10
	DefaultSearchMaxLimit   = 50
	DefaultQueryCacheSize   = 100
	DefaultQueryCacheTTLSec = 3600

	DefaultWatchDebounceMs = 2000
)

// ChunkConfig bounds the chunking strategies and post-processor
type ChunkConfig struct {
	MaxSize      int `toml:"max_size"`
	MinSize      int `toml:"min_size"`
	TargetSize   int `toml:"target_size"`
	Overlap      int `toml:"overlap"`
	NarrativeCap int `toml:"narrative_cap"`
}

// EmbeddingConfig selects and paces the embedding provider
type EmbeddingConfig struct {
	Provider     string `toml:"provider"` // openai | gemini | local
	Model        string `toml:"model"`
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	Dimension    int    `toml:"dimension"`
	BatchSize    int    `toml:"batch_size"`
	MaxRetries   int    `toml:"max_retries"`
	RetryDelayMs int    `toml:"retry_delay_ms"`
	BatchDelayMs int    `toml:"batch_delay_ms"`
	CacheSize    int    `toml:"cache_size"`
}

// RetryDelay returns the initial backoff delay between provider retries
func (e EmbeddingConfig) RetryDelay() time.Duration {
	return time.Duration(e.RetryDelayMs) * time.Millisecond
}

// BatchDelay returns the pacing delay between provider batches
func (e EmbeddingConfig) BatchDelay() time.Duration {
	return time.Duration(e.BatchDelayMs) * time.Millisecond
}

// SearchConfig holds fusion weights and query cache sizing
type SearchConfig struct {
	LexicalWeight   float64 `toml:"lexical_weight"`
	SemanticWeight  float64 `toml:"semantic_weight"`
	DefaultLimit    int     `toml:"default_limit"`
	MaxLimit        int     `toml:"max_limit"`
	CacheSize       int     `toml:"cache_size"`
	CacheTTLSeconds int     `toml:"cache_ttl_seconds"`
}

// CacheTTL returns the query cache entry lifetime
func (s SearchConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// LogConfig selects the log level
type LogConfig struct {
	Level string `toml:"level"`
}

// WatchConfig tunes the filesystem watcher
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms"`
}

// Debounce returns the event coalescing window for the watcher
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Config is the complete server configuration
type Config struct {
	DBPath  string `toml:"db_path"`
	DocsDir string `toml:"docs_dir"`

	Chunk     ChunkConfig     `toml:"chunk"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Search    SearchConfig    `toml:"search"`
	Log       LogConfig       `toml:"log"`
	Watch     WatchConfig     `toml:"watch"`
}

// Default returns a Config populated with all defaults
func Default() *Config {
	return &Config{
		DBPath: DefaultDBFile,
		Chunk: ChunkConfig{
			MaxSize:      DefaultChunkMaxSize,
			MinSize:      DefaultChunkMinSize,
			TargetSize:   DefaultChunkTarget,
			Overlap:      DefaultOverlap,
			NarrativeCap: DefaultNarrativeCap,
		},
		Embedding: EmbeddingConfig{
			Provider:     DefaultProvider,
			Model:        DefaultModel,
			Dimension:    DefaultDimension,
			BatchSize:    DefaultBatchSize,
			MaxRetries:   DefaultMaxRetries,
			RetryDelayMs: DefaultRetryDelayMs,
			BatchDelayMs: DefaultBatchDelayMs,
			CacheSize:    DefaultCacheSize,
		},
		Search: SearchConfig{
			LexicalWeight:   DefaultLexicalWeight,
			SemanticWeight:  DefaultSemanticWeight,
			DefaultLimit:    DefaultSearchLimit,
			MaxLimit:        DefaultSearchMaxLimit,
			CacheSize:       DefaultQueryCacheSize,
			CacheTTLSeconds: DefaultQueryCacheTTLSec,
		},
		Log:   LogConfig{Level: "info"},
		Watch: WatchConfig{DebounceMs: DefaultWatchDebounceMs},
	}
}

// Load reads the config file at path (or the default location when path is
// empty), applies environment overrides, and validates. A missing file is
// not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults + environment only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as TOML, creating parent directories as needed
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnv() {
	setString(&c.DBPath, "SDKDOCS_DB_PATH")
	setString(&c.DocsDir, "SDKDOCS_DOCS_DIR")
	setString(&c.Embedding.Provider, "SDKDOCS_EMBEDDING_PROVIDER")
	setString(&c.Embedding.Model, "SDKDOCS_EMBEDDING_MODEL")
	setString(&c.Embedding.BaseURL, "SDKDOCS_EMBEDDING_BASE_URL")
	setString(&c.Log.Level, "SDKDOCS_LOG_LEVEL")
	setInt(&c.Embedding.Dimension, "SDKDOCS_EMBEDDING_DIMENSION")
	setInt(&c.Embedding.BatchSize, "SDKDOCS_EMBEDDING_BATCH_SIZE")

	// Provider keys follow each vendor's conventional variable
	if c.Embedding.APIKey == "" {
		switch c.Embedding.Provider {
		case "gemini":
			c.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	setString(&c.Embedding.APIKey, "SDKDOCS_EMBEDDING_API_KEY")
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Chunk.MinSize <= 0 || c.Chunk.MaxSize <= c.Chunk.MinSize {
		return fmt.Errorf("chunk sizes must satisfy 0 < min (%d) < max (%d)", c.Chunk.MinSize, c.Chunk.MaxSize)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.NarrativeCap {
		return fmt.Errorf("chunk overlap %d must be non-negative and below the narrative cap %d", c.Chunk.Overlap, c.Chunk.NarrativeCap)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.MaxRetries < 1 {
		return fmt.Errorf("embedding max retries must be >= 1, got %d", c.Embedding.MaxRetries)
	}
	sum := c.Search.LexicalWeight + c.Search.SemanticWeight
	if c.Search.LexicalWeight < 0 || c.Search.SemanticWeight < 0 || math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search weights must be non-negative and sum to 1, got %.2f + %.2f", c.Search.LexicalWeight, c.Search.SemanticWeight)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search limits must satisfy 0 < default (%d) <= max (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
