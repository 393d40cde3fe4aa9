// Package chromem implements the vector index on chromem-go, a pure Go
// embedded vector database. Each owner gets a dedicated collection, and
// every document additionally carries an owner_id metadata filter, so
// isolation holds even if a collection were ever shared.
package chromem

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/vectorindex"
)

// Index wraps chromem-go. Vectors are stored with no plaintext content;
// the document body stays empty and only linkage metadata rides along.
type Index struct {
	db          *chromem.DB
	dimensions  int
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory chromem index for vectors of the given size.
func New(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("chromem: dimensions must be positive, got %d", dimensions)
	}
	return &Index{
		db:          chromem.NewDB(),
		dimensions:  dimensions,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// NewPersistent creates a chromem index backed by a directory so the
// ANN state survives restarts.
func NewPersistent(path string, dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("chromem: dimensions must be positive, got %d", dimensions)
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("chromem: open %s: %w", path, err)
	}
	idx := &Index{
		db:          db,
		dimensions:  dimensions,
		collections: make(map[string]*chromem.Collection),
	}
	for name, col := range db.ListCollections() {
		owner := strings.TrimPrefix(name, "owner_")
		idx.collections[owner] = col
	}
	return idx, nil
}

func collectionName(ownerID string) string {
	return "owner_" + ownerID
}

// getOrCreateCollection returns the owner's collection, creating it on
// first use. Empty owner ids fail closed.
func (x *Index) getOrCreateCollection(ownerID string) (*chromem.Collection, error) {
	if ownerID == "" {
		return nil, core.ErrInvalidOwnerID
	}

	x.mu.RLock()
	col, exists := x.collections[ownerID]
	x.mu.RUnlock()
	if exists {
		return col, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if col, exists := x.collections[ownerID]; exists {
		return col, nil
	}

	col, err := x.db.CreateCollection(collectionName(ownerID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create collection: %v", core.ErrVectorIndexUnavailable, err)
	}
	x.collections[ownerID] = col
	return col, nil
}

// Upsert adds or replaces a datapoint in the owner's partition.
func (x *Index) Upsert(ctx context.Context, dp vectorindex.Datapoint) error {
	if len(dp.Vector) != x.dimensions {
		return fmt.Errorf("chromem: vector size %d, index expects %d", len(dp.Vector), x.dimensions)
	}
	col, err := x.getOrCreateCollection(dp.OwnerID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        dp.ID,
		Embedding: dp.Vector,
		Metadata: map[string]string{
			"owner_id": dp.OwnerID,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: add document: %v", core.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Query returns up to limit matches from the owner's partition.
func (x *Index) Query(ctx context.Context, ownerID string, vector []float32, limit int) ([]vectorindex.Match, error) {
	if ownerID == "" {
		return nil, core.ErrInvalidOwnerID
	}
	if len(vector) != x.dimensions {
		return nil, fmt.Errorf("chromem: vector size %d, index expects %d", len(vector), x.dimensions)
	}
	if limit <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	col, exists := x.collections[ownerID]
	x.mu.RUnlock()
	if !exists {
		// No partition yet means no memories yet.
		return nil, nil
	}

	where := map[string]string{"owner_id": ownerID}

	// chromem requires nResults <= document count; shrink the limit
	// until the query fits.
	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		var err error
		results, err = col.QueryEmbedding(ctx, vector, currentLimit, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("%w: query: %v", core.ErrVectorIndexUnavailable, err)
	}

	matches := make([]vectorindex.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, vectorindex.Match{ID: r.ID, Score: r.Similarity})
	}
	return matches, nil
}

// Delete removes datapoints by id from the owner's partition.
func (x *Index) Delete(ctx context.Context, ownerID string, ids ...string) error {
	if ownerID == "" {
		return core.ErrInvalidOwnerID
	}
	if len(ids) == 0 {
		return nil
	}

	x.mu.RLock()
	col, exists := x.collections[ownerID]
	x.mu.RUnlock()
	if !exists {
		return nil
	}

	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("%w: delete: %v", core.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// DeleteOwner drops the owner's entire partition.
func (x *Index) DeleteOwner(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return core.ErrInvalidOwnerID
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.collections[ownerID]; !exists {
		return nil
	}
	if err := x.db.DeleteCollection(collectionName(ownerID)); err != nil {
		return fmt.Errorf("%w: delete collection: %v", core.ErrVectorIndexUnavailable, err)
	}
	delete(x.collections, ownerID)
	return nil
}

// Dimensions returns the expected vector size.
func (x *Index) Dimensions() int { return x.dimensions }

// Close releases resources. chromem keeps state in memory (or flushed
// to disk on write), so there is nothing to tear down.
func (x *Index) Close() error { return nil }

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
