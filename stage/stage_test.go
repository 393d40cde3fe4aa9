package stage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/metastore"
	"github.com/Dev-solder124/genAI/stage"
)

func newStore(t *testing.T) *metastore.BadgerStore {
	t.Helper()
	s, err := metastore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUnknownOwnerStartsAtInitialStage(t *testing.T) {
	ctrl := stage.NewController(newStore(t))
	ctx := context.Background()

	got, err := ctrl.Current(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.InitialStage, got)

	got, err = ctrl.Effective(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.InitialStage, got)
}

func TestCommitValidProposal(t *testing.T) {
	store := newStore(t)
	ctrl := stage.NewController(store)
	ctx := context.Background()

	committed, err := ctrl.Commit(ctx, "alice", "exploration")
	require.NoError(t, err)
	assert.Equal(t, core.StageExploration, committed)

	got, err := ctrl.Current(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.StageExploration, got)

	profile, err := store.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, profile.LastInteractionAt.IsZero())
}

func TestCommitInvalidProposalKeepsPrior(t *testing.T) {
	ctrl := stage.NewController(newStore(t))
	ctx := context.Background()

	_, err := ctrl.Commit(ctx, "alice", "goal_setting")
	require.NoError(t, err)

	for _, bad := range []string{"", "enlightenment", "GOAL_SETTING", "stage 4"} {
		committed, err := ctrl.Commit(ctx, "alice", bad)
		require.NoError(t, err)
		assert.Equal(t, core.StageGoalSetting, committed, "proposal %q", bad)
	}
}

func TestInactivityReset(t *testing.T) {
	store := newStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctrl := stage.NewController(store, stage.WithClock(clock))
	ctx := context.Background()

	_, err := ctrl.Commit(ctx, "alice", "action_support")
	require.NoError(t, err)

	// Just under the window: stage sticks.
	now = now.Add(24*time.Hour - time.Second)
	got, err := ctrl.Effective(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.StageActionSupport, got)

	// At the boundary: reset fires and persists.
	now = now.Add(time.Second)
	got, err = ctrl.Effective(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.InitialStage, got)

	stored, err := ctrl.Current(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.InitialStage, stored)
}

func TestSetValidatesStage(t *testing.T) {
	ctrl := stage.NewController(newStore(t))
	ctx := context.Background()

	assert.ErrorIs(t, ctrl.Set(ctx, "alice", core.Stage("bogus")), core.ErrInvalidStage)

	require.NoError(t, ctrl.Set(ctx, "alice", core.StageIntervention))
	got, err := ctrl.Current(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.StageIntervention, got)
}

func TestResetClearsStageAndInstructions(t *testing.T) {
	store := newStore(t)
	ctrl := stage.NewController(store)
	ctx := context.Background()

	_, err := store.UpdateProfile(ctx, "alice", func(p *core.UserProfile) error {
		p.Stage = core.StageGoalSetting
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, ctrl.Reset(ctx, "alice"))

	profile, err := store.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.InitialStage, profile.Stage)
	assert.True(t, profile.Instructions.IsZero())
}

func TestGarbledStoredStageReportsInitial(t *testing.T) {
	store := newStore(t)
	ctrl := stage.NewController(store)
	ctx := context.Background()

	_, err := store.UpdateProfile(ctx, "alice", func(p *core.UserProfile) error {
		p.Stage = core.Stage("corrupted")
		return nil
	})
	require.NoError(t, err)

	got, err := ctrl.Current(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.InitialStage, got)
}

func TestInvalidOwnerFailsClosed(t *testing.T) {
	ctrl := stage.NewController(newStore(t))
	ctx := context.Background()

	_, err := ctrl.Current(ctx, "a b")
	assert.ErrorIs(t, err, core.ErrInvalidOwnerID)
	_, err = ctrl.Commit(ctx, "", "exploration")
	assert.ErrorIs(t, err, core.ErrInvalidOwnerID)
}
