package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbedder_Dimension(t *testing.T) {
	e := NewLocalEmbedder(8)
	vec, err := e.Embed(context.Background(), "grace period")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 8, e.Dimension())
}

func TestLocalEmbedder_BucketsByCharacterPosition(t *testing.T) {
	e := NewLocalEmbedder(4)
	vec, err := e.Embed(context.Background(), "Ab c")
	require.NoError(t, err)

	// "ab": a->0, b->1; "c": c->0
	assert.InDelta(t, float64('a'+'c')/1000, vec[0], 1e-6)
	assert.InDelta(t, float64('b')/1000, vec[1], 1e-6)
	assert.Zero(t, vec[2])
	assert.Zero(t, vec[3])
}

func TestLocalEmbedder_WrapsAroundDimension(t *testing.T) {
	e := NewLocalEmbedder(2)
	vec, err := e.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.InDelta(t, float64('a'+'c')/1000, vec[0], 1e-6)
	assert.InDelta(t, float64('b')/1000, vec[1], 1e-6)
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(384)
	a, err := e.Embed(context.Background(), "What is the grace period?")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "what   is the GRACE period?")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLocalEmbedder_EmptyText(t *testing.T) {
	vec, err := NewLocalEmbedder(3).Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, vec)
}
