package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/sdkdocs-mcp/internal/config"
)

// New builds the provider named by cfg. An unknown provider name is an
// error rather than a silent local fallback.
func New(ctx context.Context, cfg config.EmbeddingConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIOptions{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: cfg.Dimension,
		})
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case ProviderLocal, "":
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewFromEnv builds a provider from environment variables alone.
// Priority:
//  1. SDKDOCS_EMBEDDING_PROVIDER (openai, gemini, local)
//  2. OPENAI_API_KEY set, then GEMINI_API_KEY set
//  3. local fallback for offline use
func NewFromEnv(ctx context.Context) (Provider, error) {
	cfg := config.EmbeddingConfig{
		Provider: DetectProvider(),
		Model:    os.Getenv("SDKDOCS_EMBEDDING_MODEL"),
		BaseURL:  os.Getenv("SDKDOCS_EMBEDDING_BASE_URL"),
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return New(ctx, cfg)
}

// DetectProvider reports which provider NewFromEnv would choose.
func DetectProvider() string {
	if provider := os.Getenv("SDKDOCS_EMBEDDING_PROVIDER"); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		return ProviderGemini
	}
	return ProviderLocal
}
