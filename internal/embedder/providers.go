package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// Provider names and model defaults
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"

	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultGeminiModel = "text-embedding-004"
	DefaultLocalModel  = "local-hash-embeddings"

	OpenAIDimension = 1536
	GeminiDimension = 768
	LocalDimension  = 384

	DefaultOpenAIBaseURL = "https://api.openai.com"
)

// Common provider errors
var (
	ErrNoAPIKey       = errors.New("api key not configured")
	ErrProviderFailed = errors.New("embedding provider failed")
	ErrEmptyInput     = errors.New("no texts to embed")
)

// Provider generates embedding vectors for batches of text. Embed returns
// one vector per input text, in order, plus the provider-reported token
// usage for the call.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, int, error)
	Dimension() int
	Model() string
	Close() error
}

// OpenAIProvider calls an OpenAI-compatible /v1/embeddings endpoint. The
// base URL is overridable, so it also serves Azure-style gateways and
// local inference servers speaking the same wire format.
type OpenAIProvider struct {
	apiKey     string
	model      string
	baseURL    string
	dimension  int
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// OpenAIOptions configures NewOpenAIProvider. Zero-valued fields fall
// back to the published defaults.
type OpenAIOptions struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
}

// NewOpenAIProvider builds an OpenAI embedding provider. A missing API
// key is an error: this provider never runs unauthenticated.
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNoAPIKey)
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	dimension := opts.Dimension
	if dimension <= 0 {
		dimension = OpenAIDimension
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "openai-embeddings",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})

	return &OpenAIProvider{
		apiKey:     opts.APIKey,
		model:      model,
		baseURL:    baseURL,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    breaker,
	}, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, ErrEmptyInput
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.callAPI(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, 0, fmt.Errorf("%w: circuit open, upstream failing", ErrProviderFailed)
		}
		return nil, 0, err
	}

	resp := result.(*openAIResponse)
	if len(resp.Data) != len(texts) {
		return nil, 0, fmt.Errorf("%w: %d texts sent, %d vectors returned", ErrProviderFailed, len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, 0, fmt.Errorf("%w: vector index %d out of range", ErrProviderFailed, item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, resp.Usage.TotalTokens, nil
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) callAPI(ctx context.Context, texts []string) (*openAIResponse, error) {
	body, err := json.Marshal(map[string]any{
		"input": texts,
		"model": p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(detail))
	}

	var parsed openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

func (p *OpenAIProvider) Dimension() int { return p.dimension }
func (p *OpenAIProvider) Model() string  { return p.model }

func (p *OpenAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// GeminiProvider embeds through the Google generative AI batch API.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
}

// NewGeminiProvider builds a Gemini embedding provider.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNoAPIKey)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiProvider{
		client: client,
		model:  client.EmbeddingModel(model),
		name:   model,
	}, nil
}

func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, ErrEmptyInput
	}

	batch := p.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := p.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, 0, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, 0, fmt.Errorf("%w: %d texts sent, %d vectors returned", ErrProviderFailed, len(texts), len(resp.Embeddings))
	}

	// The batch API reports no usage; estimate with the same chars/4
	// heuristic the input budget uses.
	tokens := 0
	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vectors[i] = emb.Values
		tokens += len(texts[i]) / 4
	}
	return vectors, tokens, nil
}

func (p *GeminiProvider) Dimension() int { return GeminiDimension }
func (p *GeminiProvider) Model() string  { return p.name }

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// LocalProvider derives deterministic unit vectors from content hashes.
// The vectors carry no semantic signal; the provider exists for offline
// runs and tests, where reproducibility matters more than quality.
type LocalProvider struct {
	model string
}

// NewLocalProvider builds the offline provider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{model: DefaultLocalModel}
}

func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	tokens := 0
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text, LocalDimension)
		tokens += len(text) / 4
	}
	return vectors, tokens, nil
}

func (p *LocalProvider) Dimension() int { return LocalDimension }
func (p *LocalProvider) Model() string  { return p.model }
func (p *LocalProvider) Close() error   { return nil }

// hashVector expands sha256(text) into a normalized vector of the given
// dimension by chaining counter-suffixed digests.
func hashVector(text string, dimension int) []float32 {
	vector := make([]float32, dimension)
	seed := sha256.Sum256([]byte(text))
	block := seed[:]
	for i := 0; i < dimension; i++ {
		if i%sha256.Size == 0 && i > 0 {
			next := sha256.Sum256(append(block, byte(i/sha256.Size)))
			block = next[:]
		}
		// Center on zero so vectors spread across the sphere
		vector[i] = float32(block[i%sha256.Size])/127.5 - 1.0
	}
	return normalize(vector)
}

// normalize scales v to unit length; zero vectors pass through.
func normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
