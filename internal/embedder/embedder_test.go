package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

// newEmbeddingServer answers the OpenAI embeddings wire format. The
// handler receives the parsed input texts and returns the data slice
// to send back, in whatever order it likes.
func newEmbeddingServer(t *testing.T, handler func(texts []string) []embeddingData) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{
			Object: "list",
			Data:   handler(req.Input),
			Model:  DefaultOpenRouterModel,
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestOpenRouterBatchRestoresOrder(t *testing.T) {
	server := newEmbeddingServer(t, func(texts []string) []embeddingData {
		// Respond in reverse order; the provider must re-sort by index.
		data := make([]embeddingData, 0, len(texts))
		for i := len(texts) - 1; i >= 0; i-- {
			data = append(data, embeddingData{
				Object:    "embedding",
				Embedding: []float32{float32(i), 0, 0},
				Index:     i,
			})
		}
		return data
	})
	defer server.Close()

	p, err := NewOpenRouterProvider("test-key", "", server.URL, nil)
	require.NoError(t, err)

	vectors, err := p.EmbedBatch(context.Background(), []string{"zero", "one", "two"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 0, 0}, vectors[0])
	assert.Equal(t, []float32{1, 0, 0}, vectors[1])
	assert.Equal(t, []float32{2, 0, 0}, vectors[2])
}

func TestOpenRouterCacheSkipsAPI(t *testing.T) {
	var calls atomic.Int32
	server := newEmbeddingServer(t, func(texts []string) []embeddingData {
		calls.Add(1)
		data := make([]embeddingData, len(texts))
		for i := range texts {
			data[i] = embeddingData{Object: "embedding", Embedding: []float32{1, 2, 3}, Index: i}
		}
		return data
	})
	defer server.Close()

	p, err := NewOpenRouterProvider("test-key", "", server.URL, NewCache(10))
	require.NoError(t, err)

	first, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	second, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())

	// A cached text in a batch only sends the misses.
	vectors, err := p.EmbedBatch(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenRouterRetriesOnFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":{"message":"upstream busy"}}`, http.StatusBadGateway)
			return
		}
		resp := embeddingResponse{
			Object: "list",
			Data:   []embeddingData{{Object: "embedding", Embedding: []float32{1}, Index: 0}},
			Model:  DefaultOpenRouterModel,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewOpenRouterProvider("test-key", "", server.URL, nil)
	require.NoError(t, err)

	vector, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vector)
	assert.EqualValues(t, 3, calls.Load())
}

func TestOpenRouterValidation(t *testing.T) {
	p, err := NewOpenRouterProvider("test-key", "", "http://localhost:1", nil)
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = p.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	big := make([]string, MaxBatchSize+1)
	for i := range big {
		big[i] = "x"
	}
	_, err = p.EmbedBatch(context.Background(), big)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestOpenRouterRequiresKey(t *testing.T) {
	t.Setenv(EnvOpenRouterAPIKey, "")
	_, err := NewOpenRouterProvider("", "", "", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestLocalProviderDeterministic(t *testing.T) {
	p, err := NewLocalProvider(nil)
	require.NoError(t, err)

	a, err := p.Embed(context.Background(), "widgets")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "widgets")
	require.NoError(t, err)
	other, err := p.Embed(context.Background(), "gadgets")
	require.NoError(t, err)

	assert.Len(t, a, LocalDimension)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
}

func TestCacheReturnsCopy(t *testing.T) {
	cache := NewCache(10)
	cache.Set("h", []float32{1, 2, 3})

	got, ok := cache.Get("h")
	require.True(t, ok)
	got[0] = 99

	again, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), again[0])
}

func TestFactory(t *testing.T) {
	e, err := New(Config{Provider: "local"})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, e.Provider())

	_, err = New(Config{Provider: "mystery"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	t.Setenv(EnvOpenRouterAPIKey, "")
	assert.Equal(t, ProviderLocal, DetectProvider())
	t.Setenv(EnvOpenRouterAPIKey, "sk-or-x")
	assert.Equal(t, ProviderOpenRouter, DetectProvider())
}
