// Package engine orchestrates one conversational turn end to end:
// consent gate, stage resolution, memory retrieval, reply generation,
// stage commit, session bookkeeping, and the memory write. It also
// exposes the management operations (consent, stage, instructions,
// deletion) as plain methods.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/fieldcrypt"
	"github.com/Dev-solder124/genAI/memory"
	"github.com/Dev-solder124/genAI/metastore"
	"github.com/Dev-solder124/genAI/responder"
	"github.com/Dev-solder124/genAI/stage"
)

// ConsentPrompt is returned instead of a generated reply while the
// owner has not opted in to long-term memory.
const ConsentPrompt = "I can remember helpful things between sessions to better support you. Would you like me to remember parts of this conversation for next time? (yes/no)"

// Deps are the engine's required collaborators. Cipher may be nil when
// records are stored plaintext.
type Deps struct {
	Store     metastore.Store
	Writer    *memory.Writer
	Retriever *memory.Retriever
	Failover  *memory.Failover
	Stages    *stage.Controller
	Responder responder.Responder
	Cipher    fieldcrypt.Cipher
}

// Engine runs turns and management operations.
type Engine struct {
	deps Deps

	contextTurns int
	log          *slog.Logger
	now          func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

// WithContextTurns sets how many recent session turns the responder
// sees.
func WithContextTurns(n int) Option {
	return func(e *Engine) { e.contextTurns = n }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. All Deps except Cipher are required.
func New(deps Deps, opts ...Option) (*Engine, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("engine: Store is required")
	case deps.Writer == nil:
		return nil, fmt.Errorf("engine: Writer is required")
	case deps.Retriever == nil:
		return nil, fmt.Errorf("engine: Retriever is required")
	case deps.Failover == nil:
		return nil, fmt.Errorf("engine: Failover is required")
	case deps.Stages == nil:
		return nil, fmt.Errorf("engine: Stages is required")
	case deps.Responder == nil:
		return nil, fmt.Errorf("engine: Responder is required")
	}

	e := &Engine{
		deps:         deps,
		contextTurns: 6,
		log:          slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// TurnInput is one user message entering the engine.
type TurnInput struct {
	OwnerID     string
	UserMessage string

	// SessionID groups turns; a fresh id is generated when empty.
	SessionID string
}

// TurnResult is everything a caller needs to render a turn.
type TurnResult struct {
	Reply     string
	Stage     core.Stage
	SessionID string

	// AwaitingConsent is true when Reply is the consent prompt and no
	// generation happened.
	AwaitingConsent bool

	// Memories are the retrieved memories that conditioned the reply.
	Memories []core.RankedMemory

	// Write reports what the memory writer did for this exchange.
	Write core.WriteResult
}

// ProcessTurn runs one turn. Only responder failures and store failures
// on the critical path surface as errors; memory-pipeline trouble
// degrades per component.
func (e *Engine) ProcessTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	if err := metastore.ValidateOwnerID(in.OwnerID); err != nil {
		return nil, err
	}
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}

	profile, err := e.deps.Store.GetProfile(ctx, in.OwnerID)
	if err != nil && !errors.Is(err, core.ErrProfileNotFound) {
		return nil, err
	}

	if !profile.Consent {
		return &TurnResult{
			Reply:           ConsentPrompt,
			Stage:           core.InitialStage,
			SessionID:       in.SessionID,
			AwaitingConsent: true,
		}, nil
	}

	currentStage, err := e.deps.Stages.Effective(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}

	memories, err := e.deps.Retriever.Retrieve(ctx, in.OwnerID, in.UserMessage)
	if err != nil {
		if errors.Is(err, core.ErrInvalidOwnerID) {
			return nil, err
		}
		e.log.Warn("retrieval failed, continuing without memories",
			"owner_id", in.OwnerID, "error", err)
		memories = nil
	}

	instructions, err := memory.DecodeInstructions(profile.Instructions, e.deps.Cipher)
	if err != nil {
		e.log.Warn("dropping undecryptable standing instructions",
			"owner_id", in.OwnerID, "error", err)
		instructions = nil
	}

	displayName, err := profile.DisplayName.Reveal(e.deps.Cipher)
	if err != nil {
		displayName = ""
	}

	recent, err := e.deps.Store.RecentTurns(ctx, in.OwnerID, e.contextTurns)
	if err != nil {
		recent = nil
	}

	res, err := e.deps.Responder.Respond(ctx, responder.Input{
		Stage:        currentStage,
		UserMessage:  in.UserMessage,
		DisplayName:  displayName,
		Memories:     memories,
		Instructions: instructions,
		Recent:       recent,
	})
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	committed, err := e.deps.Stages.Commit(ctx, in.OwnerID, res.ProposedStage)
	if err != nil {
		return nil, err
	}

	if err := e.deps.Store.AppendSessionTurn(ctx, in.OwnerID, core.Turn{
		User:      in.UserMessage,
		Assistant: res.Reply,
		At:        e.now().UTC(),
	}); err != nil {
		e.log.Warn("failed to append session turn",
			"owner_id", in.OwnerID, "error", err)
	}

	writeRes, err := e.deps.Writer.Write(ctx, in.OwnerID, core.Exchange{
		SessionID:      in.SessionID,
		UserMessage:    in.UserMessage,
		AssistantReply: res.Reply,
	})
	if err != nil {
		// The user already has their reply; a failed write never
		// fails the turn.
		e.log.Error("memory write failed", "owner_id", in.OwnerID, "error", err)
	}

	return &TurnResult{
		Reply:     res.Reply,
		Stage:     committed,
		SessionID: in.SessionID,
		Memories:  memories,
		Write:     writeRes,
	}, nil
}

// Retrieve exposes the read path directly.
func (e *Engine) Retrieve(ctx context.Context, ownerID, query string) ([]core.RankedMemory, error) {
	return e.deps.Retriever.Retrieve(ctx, ownerID, query)
}

// Write exposes the write path directly. Consent is still enforced
// inside the writer.
func (e *Engine) Write(ctx context.Context, ownerID string, exch core.Exchange) (core.WriteResult, error) {
	return e.deps.Writer.Write(ctx, ownerID, exch)
}

// GetStage returns the owner's stored stage.
func (e *Engine) GetStage(ctx context.Context, ownerID string) (core.Stage, error) {
	return e.deps.Stages.Current(ctx, ownerID)
}

// SetStage forces the owner's stage.
func (e *Engine) SetStage(ctx context.Context, ownerID string, s core.Stage) error {
	return e.deps.Stages.Set(ctx, ownerID, s)
}

// ResetInstructions clears the owner's standing instructions and
// returns the conversation to the initial stage.
func (e *Engine) ResetInstructions(ctx context.Context, ownerID string) error {
	return e.deps.Stages.Reset(ctx, ownerID)
}

// SetConsent creates or updates the owner's profile with the consent
// decision. Display name and contact are sealed when a cipher is
// configured.
func (e *Engine) SetConsent(ctx context.Context, ownerID string, consent bool, displayName, contact string) error {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return err
	}

	_, err := e.deps.Store.UpdateProfile(ctx, ownerID, func(p *core.UserProfile) error {
		p.Consent = consent
		if p.CreatedAt.IsZero() {
			p.CreatedAt = e.now().UTC()
		}
		if !p.Stage.Valid() {
			p.Stage = core.InitialStage
		}
		if displayName != "" {
			sealed, err := fieldcrypt.Seal(e.deps.Cipher, displayName)
			if err != nil {
				return err
			}
			p.DisplayName = sealed
		}
		if contact != "" {
			sealed, err := fieldcrypt.Seal(e.deps.Cipher, contact)
			if err != nil {
				return err
			}
			p.Contact = sealed
		}
		p.Anonymous = p.DisplayName.IsZero()
		return nil
	})
	return err
}

// DeleteAll removes every memory the owner has, in both stores, plus
// the session buffer, and reports how many records were deleted.
// Calling it again returns 0; deletion is idempotent.
func (e *Engine) DeleteAll(ctx context.Context, ownerID string) (int, error) {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return 0, err
	}

	count, err := e.deps.Store.DeleteMemories(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	// Index and session cleanup are best-effort; the source of truth
	// is already gone.
	e.deps.Failover.DeleteOwner(ctx, ownerID)
	if err := e.deps.Store.ClearSession(ctx, ownerID); err != nil {
		e.log.Warn("failed to clear session buffer", "owner_id", ownerID, "error", err)
	}
	return count, nil
}
