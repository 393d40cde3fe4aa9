package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/memory"
	"github.com/Dev-solder124/genAI/vectorindex"
	chromemindex "github.com/Dev-solder124/genAI/vectorindex/chromem"
)

func TestFailoverNilIndex(t *testing.T) {
	f := memory.NewFailover(nil, nil, nil)
	ctx := context.Background()

	assert.False(t, f.Available())

	matches, ok, err := f.Query(ctx, "alice", make([]float32, dims), 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, matches)

	err = f.Upsert(ctx, vectorindex.Datapoint{ID: "x", OwnerID: "alice", Vector: make([]float32, dims)})
	assert.ErrorIs(t, err, core.ErrVectorIndexUnavailable)

	// Deletes absorb silently.
	f.Delete(ctx, "alice", "x")
	f.DeleteOwner(ctx, "alice")
}

func TestFailoverQueryAbsorbsIndexErrors(t *testing.T) {
	real, err := chromemindex.New(dims)
	require.NoError(t, err)
	idx := &flakyIndex{Index: real, queryDown: true}
	f := memory.NewFailover(idx, nil, nil)

	matches, ok, err := f.Query(context.Background(), "alice", make([]float32, dims), 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, matches)
}

func TestFailoverInvalidOwnerNotMasked(t *testing.T) {
	real, err := chromemindex.New(dims)
	require.NoError(t, err)
	f := memory.NewFailover(real, nil, nil)
	ctx := context.Background()

	_, _, err = f.Query(ctx, "", make([]float32, dims), 3)
	assert.ErrorIs(t, err, core.ErrInvalidOwnerID)

	err = f.Upsert(ctx, vectorindex.Datapoint{ID: "x", OwnerID: "", Vector: make([]float32, dims)})
	assert.ErrorIs(t, err, core.ErrInvalidOwnerID)
}
