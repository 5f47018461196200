package service

import (
	"context"
	"errors"
	"testing"

	"hackrx-go/internal/model"
	"hackrx-go/pkg/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder 把已知文本映射到固定向量，便于精确控制相似度。
type axisEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vectors[text], nil
}

func (e axisEmbedder) Dimension() int { return 2 }

func seededStore(t *testing.T) *vectorstore.MemoryStore {
	t.Helper()
	s := vectorstore.NewMemoryStore(2)
	require.NoError(t, s.Upsert(context.Background(), "doc", []model.Chunk{
		{Index: 0, Text: "east", Vector: []float32{1, 0}},
		{Index: 1, Text: "north", Vector: []float32{0, 1}},
		{Index: 2, Text: "east", Vector: []float32{1, 0.01}},
		{Index: 3, Text: "northeast", Vector: []float32{1, 1}},
	}))
	return s
}

func TestRetrieve_RankedAndDeduplicated(t *testing.T) {
	e := axisEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	texts, err := NewRetrievalService(e, seededStore(t), 0).Retrieve(context.Background(), "q", "doc", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "northeast", "north"}, texts)
}

func TestRetrieve_MinScore(t *testing.T) {
	e := axisEmbedder{vectors: map[string][]float32{"q": {1, 0}, "far": {-1, -1}}}
	svc := NewRetrievalService(e, seededStore(t), 0.5)

	texts, err := svc.Retrieve(context.Background(), "q", "doc", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "northeast"}, texts)

	// 全部低于阈值时退回未过滤的排序
	texts, err = svc.Retrieve(context.Background(), "far", "doc", 2)
	require.NoError(t, err)
	assert.Len(t, texts, 2)
}

func TestRetrieve_Errors(t *testing.T) {
	boom := errors.New("embedding down")
	_, err := NewRetrievalService(axisEmbedder{err: boom}, seededStore(t), 0).Retrieve(context.Background(), "q", "doc", 3)
	assert.ErrorIs(t, err, boom)

	e := axisEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	_, err = NewRetrievalService(e, seededStore(t), 0).Retrieve(context.Background(), "q", "doc", 0)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestRetrieve_UnknownDocument(t *testing.T) {
	e := axisEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	texts, err := NewRetrievalService(e, seededStore(t), 0).Retrieve(context.Background(), "q", "other", 3)
	require.NoError(t, err)
	assert.Empty(t, texts)
}
