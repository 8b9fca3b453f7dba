package embedder

import (
	"context"
	"fmt"
	"os"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// Provider configuration
const (
	ProviderOpenRouter = "openrouter"
	ProviderLocal      = "local"

	// OpenRouterBaseURL is the OpenAI-compatible gateway endpoint
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultOpenRouterModel is the default embedding model
	DefaultOpenRouterModel = "openai/text-embedding-3-small"

	// EnvOpenRouterAPIKey names the API key environment variable
	EnvOpenRouterAPIKey = "OPENROUTER_API_KEY"

	// MaxBatchSize caps texts per API call
	MaxBatchSize = 100
)

// OpenRouterProvider implements Embedder against the OpenRouter API
type OpenRouterProvider struct {
	client *openai.Client
	model  string
	cache  *Cache
}

// NewOpenRouterProvider creates a new OpenRouter embedder. An empty
// model selects the default, an empty baseURL the public gateway.
func NewOpenRouterProvider(apiKey, model, baseURL string, cache *Cache) (*OpenRouterProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenRouterAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenRouterAPIKey)
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &OpenRouterProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		cache:  cache,
	}, nil
}

func (p *OpenRouterProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return vectors[0], nil
}

func (p *OpenRouterProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	vectors := make([][]float32, len(texts))

	// Satisfy what we can from cache; only misses go to the API.
	var (
		missTexts   []string
		missIndexes []int
	)
	for i, text := range texts {
		if p.cache != nil {
			if vector, ok := p.cache.Get(ComputeHash(text)); ok {
				vectors[i] = vector
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}
	if len(missTexts) == 0 {
		return vectors, nil
	}

	config := DefaultRetryConfig()
	fetched, err := retryWithBackoff(ctx, config, func() ([][]float32, error) {
		return p.callAPI(ctx, missTexts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}
	if len(fetched) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(fetched), len(missTexts))
	}

	for i, vector := range fetched {
		vectors[missIndexes[i]] = vector
		if p.cache != nil {
			p.cache.Set(ComputeHash(missTexts[i]), vector)
		}
	}
	return vectors, nil
}

func (p *OpenRouterProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	// The API may return data out of order; restore input order by index.
	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (p *OpenRouterProvider) Provider() string {
	return ProviderOpenRouter
}

func (p *OpenRouterProvider) Model() string {
	return p.model
}

func (p *OpenRouterProvider) Close() error {
	return nil
}
