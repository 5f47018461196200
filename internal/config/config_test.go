package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HACKRX_AUTH_TOKEN", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 120*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "secret", cfg.Auth.Token)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, "paragraphs", cfg.RAG.ChunkStrategy)
	assert.Equal(t, 200, cfg.RAG.ChunkSize)
	assert.Equal(t, 40, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Empty(t, cfg.Database.Redis.Addr)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
auth:
  mode: static
  token: from-file
rag:
  chunk_size: 50
  chunk_overlap: 10
  top_k: 3
embedding:
  dimensions: 16
`)
	t.Setenv("HACKRX_RAG_TOP_K", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Auth.Token)
	assert.Equal(t, 50, cfg.RAG.ChunkSize)
	assert.Equal(t, 10, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 7, cfg.RAG.TopK)
	assert.Equal(t, 16, cfg.Embedding.Dimensions)
}

func TestLoad_ChunkStrategyFollowsLLMProvider(t *testing.T) {
	t.Setenv("HACKRX_AUTH_TOKEN", "secret")

	t.Setenv("HACKRX_LLM_PROVIDER", "openai")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "words", cfg.RAG.ChunkStrategy)

	t.Setenv("HACKRX_RAG_CHUNK_STRATEGY", "paragraphs")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "paragraphs", cfg.RAG.ChunkStrategy)

	t.Setenv("HACKRX_LLM_PROVIDER", "local")
	t.Setenv("HACKRX_RAG_CHUNK_STRATEGY", "words")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "words", cfg.RAG.ChunkStrategy)
}

func TestLoad_ShippedConfig(t *testing.T) {
	t.Setenv("HACKRX_AUTH_TOKEN", "secret")

	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.LLM.Provider)
	assert.Equal(t, "paragraphs", cfg.RAG.ChunkStrategy)
}

func TestLoad_InvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "overlap not smaller than window",
			body: "auth: {token: x}\nrag: {chunk_size: 10, chunk_overlap: 10}\n",
			want: "chunk_overlap",
		},
		{
			name: "non-positive top_k",
			body: "auth: {token: x}\nrag: {top_k: 0}\n",
			want: "top_k",
		},
		{
			name: "unknown chunk strategy",
			body: "auth: {token: x}\nrag: {chunk_strategy: sentences}\n",
			want: "chunk_strategy",
		},
		{
			name: "static auth without token",
			body: "auth: {mode: static}\n",
			want: "auth.token",
		},
		{
			name: "jwt auth without secret",
			body: "auth: {mode: jwt}\n",
			want: "jwt_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
