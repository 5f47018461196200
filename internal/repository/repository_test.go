package repository

import (
	"context"
	"testing"

	"hackrx-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextCacheKey(t *testing.T) {
	assert.Equal(t, "document:abc:text", textCacheKey("abc"))
}

func TestNoopRepositories(t *testing.T) {
	ctx := context.Background()

	var cache TextCacheRepository = NoopTextCacheRepository{}
	require.NoError(t, cache.Set(ctx, "fp", "text"))
	_, ok, err := cache.Get(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok)

	var docs DocumentRepository = NoopDocumentRepository{}
	require.NoError(t, docs.RecordIngestion(ctx, &model.DocumentRecord{Fingerprint: "fp"}))
	rec, err := docs.FindByFingerprint(ctx, "fp")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
