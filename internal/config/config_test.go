package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second, cfg.Embedding.RetryDelay())
	assert.Equal(t, 200*time.Millisecond, cfg.Embedding.BatchDelay())
	assert.Equal(t, time.Hour, cfg.Search.CacheTTL())
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultChunkMaxSize, cfg.Chunk.MaxSize)
	assert.Equal(t, DefaultBatchSize, cfg.Embedding.BatchSize)
	assert.InDelta(t, 1.0, cfg.Search.LexicalWeight+cfg.Search.SemanticWeight, 0.001)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, cfg.Search.DefaultLimit)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdkdocs.toml")
	content := `
db_path = "custom.db"

[chunk]
max_size = 1000
min_size = 100

[embedding]
provider = "openai"
batch_size = 25

[search]
lexical_weight = 0.5
semantic_weight = 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.DBPath)
	assert.Equal(t, 1000, cfg.Chunk.MaxSize)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 25, cfg.Embedding.BatchSize)
	assert.Equal(t, 0.5, cfg.Search.LexicalWeight)
	// Untouched sections keep defaults
	assert.Equal(t, DefaultQueryCacheSize, cfg.Search.CacheSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdkdocs.toml")
	require.NoError(t, os.WriteFile(path, []byte(`db_path = "from-file.db"`), 0o644))

	t.Setenv("SDKDOCS_DB_PATH", "from-env.db")
	t.Setenv("SDKDOCS_EMBEDDING_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DBPath)
	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, "test-key", cfg.Embedding.APIKey)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max below min", func(c *Config) { c.Chunk.MaxSize = 100; c.Chunk.MinSize = 200 }},
		{"weights not summing to 1", func(c *Config) { c.Search.LexicalWeight = 0.8; c.Search.SemanticWeight = 0.8 }},
		{"negative weight", func(c *Config) { c.Search.LexicalWeight = -0.2; c.Search.SemanticWeight = 1.2 }},
		{"zero batch size", func(c *Config) { c.Embedding.BatchSize = 0 }},
		{"zero retries", func(c *Config) { c.Embedding.MaxRetries = 0 }},
		{"overlap above narrative cap", func(c *Config) { c.Chunk.Overlap = 5000 }},
		{"max limit below default", func(c *Config) { c.Search.MaxLimit = 5; c.Search.DefaultLimit = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sdkdocs.toml")

	cfg := Default()
	cfg.DBPath = "roundtrip.db"
	cfg.Watch.DebounceMs = 5000
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip.db", loaded.DBPath)
	assert.Equal(t, 5*time.Second, loaded.Watch.Debounce())
}
