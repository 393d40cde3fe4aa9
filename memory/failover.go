package memory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/vectorindex"
)

// Failover wraps the vector index so its failures degrade instead of
// propagating. A nil index is treated as permanently unavailable, which
// lets deployments run metadata-only.
type Failover struct {
	index   vectorindex.Index
	log     *slog.Logger
	metrics *Metrics
}

// NewFailover wraps idx. logger and metrics may be nil.
func NewFailover(idx vectorindex.Index, logger *slog.Logger, metrics *Metrics) *Failover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Failover{index: idx, log: logger, metrics: metrics}
}

// Available reports whether an index is configured at all.
func (f *Failover) Available() bool {
	return f.index != nil
}

// Query runs a similarity search. ok is false when the index is down or
// missing; the caller then serves the degraded empty result. Owner id
// violations are real errors, never masked.
func (f *Failover) Query(ctx context.Context, ownerID string, vector []float32, limit int) (matches []vectorindex.Match, ok bool, err error) {
	if f.index == nil {
		f.metrics.degradedRead()
		return nil, false, nil
	}
	matches, err = f.index.Query(ctx, ownerID, vector, limit)
	if err != nil {
		if errors.Is(err, core.ErrInvalidOwnerID) {
			return nil, false, err
		}
		f.log.Warn("vector index query failed, serving degraded result",
			"owner_id", ownerID, "error", err)
		f.metrics.degradedRead()
		return nil, false, nil
	}
	return matches, true, nil
}

// Upsert indexes one datapoint, retrying once with backoff on failure.
// The returned error means the datapoint is orphaned: the metadata
// record exists but is unreachable by search until reconciled.
func (f *Failover) Upsert(ctx context.Context, dp vectorindex.Datapoint) error {
	if f.index == nil {
		return core.ErrVectorIndexUnavailable
	}

	attempt := 0
	op := func() error {
		if attempt > 0 {
			f.metrics.upsertRetry()
		}
		attempt++
		err := f.index.Upsert(ctx, dp)
		if errors.Is(err, core.ErrInvalidOwnerID) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		f.log.Error("vector index upsert failed after retry, record orphaned",
			"owner_id", dp.OwnerID, "memory_id", dp.ID, "error", err)
		return err
	}
	return nil
}

// Delete removes datapoints; failures are logged and absorbed since the
// metadata deletion already happened and a stale vector only wastes
// space.
func (f *Failover) Delete(ctx context.Context, ownerID string, ids ...string) {
	if f.index == nil {
		return
	}
	if err := f.index.Delete(ctx, ownerID, ids...); err != nil {
		f.log.Warn("vector index delete failed", "owner_id", ownerID, "error", err)
	}
}

// DeleteOwner drops the owner's partition, absorbing index failures the
// same way as Delete.
func (f *Failover) DeleteOwner(ctx context.Context, ownerID string) {
	if f.index == nil {
		return
	}
	if err := f.index.DeleteOwner(ctx, ownerID); err != nil {
		f.log.Warn("vector index owner delete failed", "owner_id", ownerID, "error", err)
	}
}
