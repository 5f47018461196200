package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func embeddingConfig(baseURL string, dims int) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Provider:   "openai",
		APIKey:     "test-key",
		BaseURL:    baseURL + "/v1",
		Model:      "text-embedding-3-small",
		Dimensions: dims,
		Timeout:    2 * time.Second,
	}
}

func writeEmbedding(w http.ResponseWriter, vec []float32) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"model":  "text-embedding-3-small",
		"data": []map[string]any{
			{"object": "embedding", "index": 0, "embedding": vec},
		},
	})
}

func TestOpenAIEmbedder_Success(t *testing.T) {
	var got map[string]any
	srv := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeEmbedding(w, []float32{0.1, 0.2, 0.3})
	})

	e := NewOpenAIEmbedder(embeddingConfig(srv.URL, 3))
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, float64(3), got["dimensions"])
	assert.Equal(t, "text-embedding-3-small", got["model"])
}

func TestOpenAIEmbedder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
		},
		{
			name: "empty data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
			},
		},
		{
			name: "wrong dimension",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEmbedding(w, []float32{1, 2})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newEmbeddingServer(t, tt.handler)
			_, err := NewOpenAIEmbedder(embeddingConfig(srv.URL, 3)).Embed(context.Background(), "hello")
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrEmbeddingService)
		})
	}
}

func TestOpenAIEmbedder_Timeout(t *testing.T) {
	srv := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeEmbedding(w, []float32{1, 2, 3})
	})
	cfg := embeddingConfig(srv.URL, 3)
	cfg.Timeout = 20 * time.Millisecond

	_, err := NewOpenAIEmbedder(cfg).Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, model.ErrEmbeddingService)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(config.EmbeddingConfig{Provider: "local", Dimensions: 16})
	require.NoError(t, err)
	assert.IsType(t, &LocalEmbedder{}, e)

	e, err = NewEmbedder(config.EmbeddingConfig{Provider: "openai", Dimensions: 16})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedder{}, e)

	_, err = NewEmbedder(config.EmbeddingConfig{Provider: "cohere"})
	assert.Error(t, err)
}
