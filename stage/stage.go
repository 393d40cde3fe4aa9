// Package stage tracks each owner's conversational stage: a small state
// machine persisted on the profile, advanced by model proposals and
// reset after long inactivity.
package stage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/fieldcrypt"
	"github.com/Dev-solder124/genAI/metastore"
)

// DefaultInactivityReset is how long an owner can be silent before the
// conversation restarts at the initial stage.
const DefaultInactivityReset = 24 * time.Hour

// Controller manages stage transitions for all owners. Invalid
// proposals never move the machine; they are logged and dropped.
type Controller struct {
	store           metastore.Store
	inactivityReset time.Duration
	log             *slog.Logger
	now             func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithInactivityReset overrides the inactivity window.
func WithInactivityReset(d time.Duration) Option {
	return func(c *Controller) { c.inactivityReset = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.log = logger }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a stage controller over the profile store.
func NewController(store metastore.Store, opts ...Option) *Controller {
	c := &Controller{
		store:           store,
		inactivityReset: DefaultInactivityReset,
		log:             slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the stage stored on the profile, without applying the
// inactivity rule. Unknown owners and profiles with a garbled stage
// report the initial stage.
func (c *Controller) Current(ctx context.Context, ownerID string) (core.Stage, error) {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return "", err
	}
	profile, err := c.store.GetProfile(ctx, ownerID)
	if errors.Is(err, core.ErrProfileNotFound) {
		return core.InitialStage, nil
	}
	if err != nil {
		return "", err
	}
	if !profile.Stage.Valid() {
		return core.InitialStage, nil
	}
	return profile.Stage, nil
}

// Effective returns the stage a new turn should run in, applying the
// inactivity reset and persisting it when it fires.
func (c *Controller) Effective(ctx context.Context, ownerID string) (core.Stage, error) {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return "", err
	}

	profile, err := c.store.GetProfile(ctx, ownerID)
	if errors.Is(err, core.ErrProfileNotFound) {
		return core.InitialStage, nil
	}
	if err != nil {
		return "", err
	}

	stage := profile.Stage
	if !stage.Valid() {
		stage = core.InitialStage
	}

	if stage != core.InitialStage &&
		!profile.LastInteractionAt.IsZero() &&
		c.now().Sub(profile.LastInteractionAt) >= c.inactivityReset {
		c.log.Info("inactivity reset, returning to initial stage",
			"owner_id", ownerID, "previous_stage", stage)
		stage = core.InitialStage
		if _, err := c.store.UpdateProfile(ctx, ownerID, func(p *core.UserProfile) error {
			p.Stage = core.InitialStage
			return nil
		}); err != nil {
			return "", err
		}
	}
	return stage, nil
}

// Commit records the stage after a turn and stamps the interaction
// time. An invalid proposal keeps the prior stage; the timestamp is
// stamped either way.
func (c *Controller) Commit(ctx context.Context, ownerID, proposed string) (core.Stage, error) {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return "", err
	}

	var committed core.Stage
	_, err := c.store.UpdateProfile(ctx, ownerID, func(p *core.UserProfile) error {
		current := p.Stage
		if !current.Valid() {
			current = core.InitialStage
		}

		next, perr := core.ParseStage(proposed)
		if perr != nil {
			if proposed != "" {
				c.log.Warn("dropping invalid stage proposal",
					"owner_id", ownerID, "proposed", proposed, "kept", current)
			}
			next = current
		}

		p.Stage = next
		p.LastInteractionAt = c.now().UTC()
		committed = next
		return nil
	})
	if err != nil {
		return "", err
	}
	return committed, nil
}

// Set forces a stage, validating it first. Used by the exposed
// set-stage operation rather than the turn loop.
func (c *Controller) Set(ctx context.Context, ownerID string, stage core.Stage) error {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return err
	}
	if !stage.Valid() {
		return core.ErrInvalidStage
	}
	_, err := c.store.UpdateProfile(ctx, ownerID, func(p *core.UserProfile) error {
		p.Stage = stage
		return nil
	})
	return err
}

// Reset returns the owner to the initial stage and clears standing
// instructions, the "start over" operation.
func (c *Controller) Reset(ctx context.Context, ownerID string) error {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return err
	}
	_, err := c.store.UpdateProfile(ctx, ownerID, func(p *core.UserProfile) error {
		p.Stage = core.InitialStage
		p.Instructions = fieldcrypt.Field{}
		return nil
	})
	return err
}
