package mock_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-solder124/genAI/embedder/mock"
)

func TestDeterministic(t *testing.T) {
	e := mock.New(0)
	ctx := context.Background()

	a, err := e.Embed(ctx, "lost my job last week")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "lost my job last week")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 384)
}

func TestDifferentTextsDiffer(t *testing.T) {
	e := mock.New(8)
	ctx := context.Background()

	a, err := e.Embed(ctx, "alpha")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "beta")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 8, e.Dimensions())
}

func TestUnitNorm(t *testing.T) {
	e := mock.New(64)

	vec, err := e.Embed(context.Background(), "normalize me")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}
