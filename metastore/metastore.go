// Package metastore is the durable document side of the hybrid memory
// store. It holds user profiles, encrypted memory records, and the
// rolling session buffer, all partitioned by owner id.
//
// The vector index never sees plaintext; this store never sees
// embeddings. The memory record id is the only link between the two.
package metastore

import (
	"context"
	"fmt"

	"github.com/Dev-solder124/genAI/core"
)

// Store is the metadata store contract.
type Store interface {
	// GetProfile loads the owner's profile. Returns
	// core.ErrProfileNotFound when none exists.
	GetProfile(ctx context.Context, ownerID string) (core.UserProfile, error)

	// PutProfile writes the profile, replacing any existing one.
	PutProfile(ctx context.Context, profile core.UserProfile) error

	// UpdateProfile applies fn to the owner's profile under a write
	// transaction and persists the result. A missing profile starts
	// from a zero profile with the owner id set.
	UpdateProfile(ctx context.Context, ownerID string, fn func(*core.UserProfile) error) (core.UserProfile, error)

	// PutMemory writes a memory record into the owner's partition.
	PutMemory(ctx context.Context, mem core.Memory) error

	// GetMemories loads records by id from the owner's partition.
	// Missing ids are skipped, not errors; the result preserves the
	// order of ids that were found.
	GetMemories(ctx context.Context, ownerID string, ids []string) ([]core.Memory, error)

	// DeleteMemories removes every memory record in the owner's
	// partition and returns how many were deleted. Deleting from an
	// empty partition returns 0 and no error.
	DeleteMemories(ctx context.Context, ownerID string) (int, error)

	// AppendSessionTurn appends a turn to the owner's rolling session
	// buffer, evicting the oldest once the buffer is full.
	AppendSessionTurn(ctx context.Context, ownerID string, turn core.Turn) error

	// RecentTurns returns up to n of the most recent session turns,
	// oldest first.
	RecentTurns(ctx context.Context, ownerID string, n int) ([]core.Turn, error)

	// ClearSession drops the owner's session buffer.
	ClearSession(ctx context.Context, ownerID string) error

	Close() error
}

// ValidateOwnerID rejects owner ids that are empty or contain
// characters outside [A-Za-z0-9_-]. Anything else could escape the key
// partition, so validation fails closed.
func ValidateOwnerID(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: empty", core.ErrInvalidOwnerID)
	}
	for _, r := range ownerID {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return fmt.Errorf("%w: %q", core.ErrInvalidOwnerID, ownerID)
		}
	}
	return nil
}
