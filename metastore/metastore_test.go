package metastore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/fieldcrypt"
	"github.com/Dev-solder124/genAI/metastore"
)

func newStore(t *testing.T) *metastore.BadgerStore {
	t.Helper()
	s, err := metastore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestValidateOwnerID(t *testing.T) {
	for _, ok := range []string{"alice", "user_42", "a-b-c", "ABC123"} {
		assert.NoError(t, metastore.ValidateOwnerID(ok), ok)
	}
	for _, bad := range []string{"", "a/b", "a b", "héllo", "x\x00y", "a/../b"} {
		assert.ErrorIs(t, metastore.ValidateOwnerID(bad), core.ErrInvalidOwnerID, bad)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "alice")
	assert.ErrorIs(t, err, core.ErrProfileNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	profile := core.UserProfile{
		OwnerID:           "alice",
		DisplayName:       fieldcrypt.Plaintext("Alice"),
		Consent:           true,
		Stage:             core.StageExploration,
		CreatedAt:         now,
		LastInteractionAt: now,
	}
	require.NoError(t, s.PutProfile(ctx, profile))

	got, err := s.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerID)
	assert.True(t, got.Consent)
	assert.Equal(t, core.StageExploration, got.Stage)

	name, err := got.DisplayName.Reveal(nil)
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
}

func TestUpdateProfileCreatesOnFirstTouch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	updated, err := s.UpdateProfile(ctx, "bob", func(p *core.UserProfile) error {
		p.Consent = true
		p.Stage = core.InitialStage
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", updated.OwnerID)
	assert.True(t, updated.Consent)

	got, err := s.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, got.Consent)
}

func TestUpdateProfileErrorAborts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	sentinel := fmt.Errorf("nope")
	_, err := s.UpdateProfile(ctx, "carol", func(p *core.UserProfile) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	_, err = s.GetProfile(ctx, "carol")
	assert.ErrorIs(t, err, core.ErrProfileNotFound)
}

func TestMemoriesPartitionedByOwner(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	put := func(owner, id, summary string) {
		require.NoError(t, s.PutMemory(ctx, core.Memory{
			ID:        id,
			OwnerID:   owner,
			Summary:   fieldcrypt.Plaintext(summary),
			CreatedAt: time.Now(),
		}))
	}
	put("alice", "m1", "alice memory")
	put("bob", "m1", "bob memory")

	// Same id, different partitions.
	got, err := s.GetMemories(ctx, "alice", []string{"m1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	sum, _ := got[0].Summary.Reveal(nil)
	assert.Equal(t, "alice memory", sum)

	// Missing ids are skipped.
	got, err = s.GetMemories(ctx, "alice", []string{"m1", "ghost"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDeleteMemoriesIdempotentCount(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.PutMemory(ctx, core.Memory{
			ID:      fmt.Sprintf("m%d", i),
			OwnerID: "alice",
			Summary: fieldcrypt.Plaintext("x"),
		}))
	}
	require.NoError(t, s.PutMemory(ctx, core.Memory{
		ID: "b1", OwnerID: "bob", Summary: fieldcrypt.Plaintext("keep"),
	}))

	n, err := s.DeleteMemories(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Second call finds nothing.
	n, err = s.DeleteMemories(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Bob is untouched.
	got, err := s.GetMemories(ctx, "bob", []string{"b1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSessionBuffer(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 70; i++ {
		require.NoError(t, s.AppendSessionTurn(ctx, "alice", core.Turn{
			User:      fmt.Sprintf("msg %d", i),
			Assistant: "ok",
			At:        time.Now(),
		}))
	}

	// Cap is 60; oldest evicted.
	turns, err := s.RecentTurns(ctx, "alice", 100)
	require.NoError(t, err)
	require.Len(t, turns, 60)
	assert.Equal(t, "msg 10", turns[0].User)
	assert.Equal(t, "msg 69", turns[59].User)

	// Recent slice, oldest first.
	turns, err = s.RecentTurns(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, turns, 5)
	assert.Equal(t, "msg 65", turns[0].User)

	require.NoError(t, s.ClearSession(ctx, "alice"))
	turns, err = s.RecentTurns(ctx, "alice", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestEncryptedSummaryAtRest(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	key := make([]byte, 32)
	cipher, err := fieldcrypt.NewChaCha20Poly1305(key)
	require.NoError(t, err)

	sealed, err := fieldcrypt.Seal(cipher, "User lost job, feeling anxious")
	require.NoError(t, err)

	require.NoError(t, s.PutMemory(ctx, core.Memory{
		ID: "m1", OwnerID: "alice", Summary: sealed,
	}))

	got, err := s.GetMemories(ctx, "alice", []string{"m1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Summary.IsEncrypted())

	plain, err := got[0].Summary.Reveal(cipher)
	require.NoError(t, err)
	assert.Equal(t, "User lost job, feeling anxious", plain)
}
