package chromem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/embedder/mock"
	"github.com/Dev-solder124/genAI/vectorindex"
	"github.com/Dev-solder124/genAI/vectorindex/chromem"
)

const dims = 32

func newIndex(t *testing.T) *chromem.Index {
	t.Helper()
	idx, err := chromem.New(dims)
	require.NoError(t, err)
	return idx
}

func embed(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := mock.New(dims).Embed(context.Background(), text)
	require.NoError(t, err)
	return vec
}

func TestUpsertAndQuery(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	vec := embed(t, "lost job, anxious about money")
	err := idx.Upsert(ctx, vectorindex.Datapoint{ID: "m1", OwnerID: "alice", Vector: vec})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, "alice", vec, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "m1", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-4)
}

func TestOwnerIsolation(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	vec := embed(t, "shared worry about work")
	require.NoError(t, idx.Upsert(ctx, vectorindex.Datapoint{ID: "a1", OwnerID: "alice", Vector: vec}))
	require.NoError(t, idx.Upsert(ctx, vectorindex.Datapoint{ID: "b1", OwnerID: "bob", Vector: vec}))

	matches, err := idx.Query(ctx, "alice", vec, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a1", matches[0].ID)

	matches, err = idx.Query(ctx, "bob", vec, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b1", matches[0].ID)
}

func TestEmptyOwnerFailsClosed(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	vec := embed(t, "anything")

	err := idx.Upsert(ctx, vectorindex.Datapoint{ID: "x", OwnerID: "", Vector: vec})
	assert.ErrorIs(t, err, core.ErrInvalidOwnerID)

	_, err = idx.Query(ctx, "", vec, 5)
	assert.ErrorIs(t, err, core.ErrInvalidOwnerID)

	assert.ErrorIs(t, idx.Delete(ctx, "", "x"), core.ErrInvalidOwnerID)
	assert.ErrorIs(t, idx.DeleteOwner(ctx, ""), core.ErrInvalidOwnerID)
}

func TestQueryUnknownOwnerIsEmpty(t *testing.T) {
	idx := newIndex(t)

	matches, err := idx.Query(context.Background(), "nobody", embed(t, "hello"), 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLimitLargerThanCollection(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, vectorindex.Datapoint{ID: "only", OwnerID: "alice", Vector: embed(t, "one memory")}))

	matches, err := idx.Query(ctx, "alice", embed(t, "one memory"), 50)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestDelete(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	vec := embed(t, "deletable")
	require.NoError(t, idx.Upsert(ctx, vectorindex.Datapoint{ID: "d1", OwnerID: "alice", Vector: vec}))
	require.NoError(t, idx.Delete(ctx, "alice", "d1"))

	matches, err := idx.Query(ctx, "alice", vec, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Deleting a missing id is a no-op.
	require.NoError(t, idx.Delete(ctx, "alice", "ghost"))
}

func TestDeleteOwner(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	vec := embed(t, "wipe me")
	require.NoError(t, idx.Upsert(ctx, vectorindex.Datapoint{ID: "w1", OwnerID: "alice", Vector: vec}))
	require.NoError(t, idx.DeleteOwner(ctx, "alice"))

	matches, err := idx.Query(ctx, "alice", vec, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Idempotent.
	require.NoError(t, idx.DeleteOwner(ctx, "alice"))
}

func TestDimensionMismatch(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	short := make([]float32, dims-1)
	err := idx.Upsert(ctx, vectorindex.Datapoint{ID: "x", OwnerID: "alice", Vector: short})
	assert.Error(t, err)

	_, err = idx.Query(ctx, "alice", short, 5)
	assert.Error(t, err)
}
