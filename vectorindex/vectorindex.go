// Package vectorindex defines the ANN index contract for semantic
// memory retrieval.
//
// The index stores only vectors and plaintext-free linkage metadata;
// encrypted summaries live in the metadata store. A datapoint id equals
// the memory record id, which is the sole join key between the two
// stores.
package vectorindex

import "context"

// Datapoint is a single indexed vector.
type Datapoint struct {
	// ID is the memory record id this vector belongs to.
	ID string

	// OwnerID partitions the index. Queries never cross owners.
	OwnerID string

	// Vector is the embedding, sized to the index dimensionality.
	Vector []float32
}

// Match is a similarity hit returned by Query.
type Match struct {
	ID    string
	Score float32
}

// Index is the approximate-nearest-neighbour store. Implementations
// must enforce owner partitioning internally; callers rely on it for
// namespace isolation.
type Index interface {
	// Upsert adds or replaces a datapoint in the owner's partition.
	Upsert(ctx context.Context, dp Datapoint) error

	// Query returns up to limit matches from the owner's partition,
	// best first.
	Query(ctx context.Context, ownerID string, vector []float32, limit int) ([]Match, error)

	// Delete removes datapoints by id from the owner's partition.
	// Missing ids are not an error.
	Delete(ctx context.Context, ownerID string, ids ...string) error

	// DeleteOwner drops the owner's entire partition.
	DeleteOwner(ctx context.Context, ownerID string) error

	// Dimensions returns the expected vector size.
	Dimensions() int

	Close() error
}
