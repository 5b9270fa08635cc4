package embedder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Embed(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)
		assert.Equal(t, "text-embedding-3-small", req.Model)

		// Vectors returned out of order: the provider must restore
		// input order from the index field.
		resp := map[string]any{
			"model": req.Model,
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
			"usage": map[string]int{"prompt_tokens": 42, "total_tokens": 42},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(OpenAIOptions{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer provider.Close()

	vectors, tokens, err := provider.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/v1/embeddings", gotPath)
	assert.Equal(t, 42, tokens)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limit"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(OpenAIOptions{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer provider.Close()

	_, _, err = provider.Embed(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api error 429")
}

func TestOpenAIProvider_VectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"data":  []map[string]any{{"index": 0, "embedding": []float32{1}}},
			"usage": map[string]int{"total_tokens": 1},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(OpenAIOptions{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer provider.Close()

	_, _, err = provider.Embed(context.Background(), []string{"one", "two"})
	require.ErrorIs(t, err, ErrProviderFailed)
}

func TestOpenAIProvider_Defaults(t *testing.T) {
	provider, err := NewOpenAIProvider(OpenAIOptions{APIKey: "test-key"})
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, DefaultOpenAIModel, provider.Model())
	assert.Equal(t, OpenAIDimension, provider.Dimension())

	_, err = NewOpenAIProvider(OpenAIOptions{})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, _, err = provider.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestLocalProvider_Deterministic(t *testing.T) {
	provider := NewLocalProvider()
	defer provider.Close()

	first, tokens, err := provider.Embed(context.Background(), []string{"connect() -> void", "disconnect() -> void"})
	require.NoError(t, err)
	second, _, err := provider.Embed(context.Background(), []string{"connect() -> void", "disconnect() -> void"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1])
	assert.Equal(t, (len("connect() -> void")+len("disconnect() -> void"))/4, tokens)
	assert.Equal(t, LocalDimension, provider.Dimension())
	require.Len(t, first[0], LocalDimension)

	var norm float64
	for _, v := range first[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalProvider_SimilarTextCloserThanDifferent(t *testing.T) {
	// Hash vectors carry no semantics; identical text is the only
	// guaranteed similarity.
	provider := NewLocalProvider()
	vectors, _, err := provider.Embed(context.Background(), []string{"alpha", "alpha", "omega"})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, Cosine(vectors[0], vectors[1]), 1e-6)
	assert.Less(t, Cosine(vectors[0], vectors[2]), 0.99)
}
