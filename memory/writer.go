package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Dev-solder124/genAI/analyzer"
	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/embedder"
	"github.com/Dev-solder124/genAI/fieldcrypt"
	"github.com/Dev-solder124/genAI/metastore"
	"github.com/Dev-solder124/genAI/vectorindex"
)

// Writer runs the write path for one exchange: significance analysis,
// embedding of the plaintext summary, encryption, then the dual write.
// The metadata record is written first; a failed vector upsert leaves
// an orphan rather than losing the memory.
type Writer struct {
	analyzer analyzer.Analyzer
	embedder embedder.Embedder
	store    metastore.Store
	failover *Failover
	cipher   fieldcrypt.Cipher

	contextTurns int
	log          *slog.Logger
	metrics      *Metrics
	now          func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) { w.log = logger }
}

// WithWriterMetrics sets the metrics sink.
func WithWriterMetrics(m *Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// WithWriterContextTurns sets how many recent session turns are handed
// to the analyzer as context.
func WithWriterContextTurns(n int) WriterOption {
	return func(w *Writer) { w.contextTurns = n }
}

// WithWriterClock overrides the time source, used by tests.
func WithWriterClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// NewWriter wires the write path. cipher may be nil to store plaintext.
func NewWriter(an analyzer.Analyzer, emb embedder.Embedder, store metastore.Store, failover *Failover, cipher fieldcrypt.Cipher, opts ...WriterOption) *Writer {
	w := &Writer{
		analyzer:     an,
		embedder:     emb,
		store:        store,
		failover:     failover,
		cipher:       cipher,
		contextTurns: 6,
		log:          slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write processes one exchange. It returns an error only when the
// exchange was significant and could not be durably persisted; analyzer
// trouble and vector index trouble both degrade.
func (w *Writer) Write(ctx context.Context, ownerID string, exch core.Exchange) (core.WriteResult, error) {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return core.WriteResult{}, err
	}

	// Consent is checked by the engine before calling Write, and
	// rechecked here so no other caller can bypass it.
	profile, err := w.store.GetProfile(ctx, ownerID)
	if err != nil || !profile.Consent {
		w.metrics.writeSkipped()
		return core.WriteResult{}, nil
	}

	recent, err := w.store.RecentTurns(ctx, ownerID, w.contextTurns)
	if err != nil {
		// Context is best-effort; analyze the exchange alone.
		recent = nil
	}

	res, err := w.analyzer.Analyze(ctx, exch, recent)
	if err != nil {
		// Fail-safe: an unanalyzable exchange is not significant.
		w.log.Warn("significance analysis failed, skipping write",
			"owner_id", ownerID, "error", err)
		w.metrics.analyzerError()
		w.metrics.writeSkipped()
		return core.WriteResult{}, nil
	}

	result := core.WriteResult{Instruction: res.Instruction}
	if res.Instruction != "" {
		if err := w.appendInstruction(ctx, ownerID, res.Instruction); err != nil {
			w.log.Warn("failed to persist standing instruction",
				"owner_id", ownerID, "error", err)
			result.Instruction = ""
		}
	}

	if !res.Significant {
		w.metrics.writeSkipped()
		return result, nil
	}

	// Embed before encrypting; the index only ever sees the vector.
	vec, err := w.embedder.Embed(ctx, res.Summary)
	if err != nil {
		return result, fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}

	sealed, err := fieldcrypt.Seal(w.cipher, res.Summary)
	if err != nil {
		return result, fmt.Errorf("seal summary: %w", err)
	}

	now := w.now().UTC()
	mem := core.Memory{
		ID:        ulid.Make().String(),
		OwnerID:   ownerID,
		Summary:   sealed,
		Topic:     res.Topic,
		SessionID: exch.SessionID,
		CreatedAt: now,
	}

	if err := w.store.PutMemory(ctx, mem); err != nil {
		return result, err
	}

	result.Stored = true
	result.MemoryID = mem.ID
	result.Summary = res.Summary
	w.metrics.writeStored()

	err = w.failover.Upsert(ctx, vectorindex.Datapoint{
		ID:      mem.ID,
		OwnerID: ownerID,
		Vector:  vec,
	})
	if err != nil {
		// The record exists but is unsearchable until reconciled.
		w.metrics.writeOrphaned()
		return result, nil
	}

	result.Indexed = true
	return result, nil
}

// appendInstruction decodes the encrypted instruction list, appends,
// and re-seals it as a unit.
func (w *Writer) appendInstruction(ctx context.Context, ownerID, instruction string) error {
	_, err := w.store.UpdateProfile(ctx, ownerID, func(p *core.UserProfile) error {
		instructions, err := DecodeInstructions(p.Instructions, w.cipher)
		if err != nil {
			return err
		}
		for _, existing := range instructions {
			if existing == instruction {
				return nil
			}
		}
		instructions = append(instructions, instruction)

		encoded, err := json.Marshal(instructions)
		if err != nil {
			return err
		}
		sealed, err := fieldcrypt.Seal(w.cipher, string(encoded))
		if err != nil {
			return err
		}
		p.Instructions = sealed
		return nil
	})
	return err
}

// DecodeInstructions reveals and decodes a profile's standing
// instruction list. An empty field decodes to nil.
func DecodeInstructions(field fieldcrypt.Field, cipher fieldcrypt.Cipher) ([]string, error) {
	if field.IsZero() {
		return nil, nil
	}
	raw, err := field.Reveal(cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: instructions: %v", core.ErrDecryption, err)
	}
	var instructions []string
	if err := json.Unmarshal([]byte(raw), &instructions); err != nil {
		return nil, fmt.Errorf("decode instructions: %w", err)
	}
	return instructions, nil
}
