package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/embedder"
	"github.com/Dev-solder124/genAI/fieldcrypt"
	"github.com/Dev-solder124/genAI/metastore"
)

// Retriever runs the read path: embed the query, search the owner's
// vector partition, hydrate the matches from the metadata store,
// decrypt, annotate recency, rank. Everything past the embedding
// degrades to fewer (or zero) results rather than an error.
type Retriever struct {
	embedder embedder.Embedder
	store    metastore.Store
	failover *Failover
	cipher   fieldcrypt.Cipher

	topK          int
	minSimilarity float32
	log           *slog.Logger
	metrics       *Metrics
	now           func() time.Time
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithRetrieverLogger sets the logger.
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) { r.log = logger }
}

// WithRetrieverMetrics sets the metrics sink.
func WithRetrieverMetrics(m *Metrics) RetrieverOption {
	return func(r *Retriever) { r.metrics = m }
}

// WithTopK sets the maximum number of results.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) { r.topK = k }
}

// WithMinSimilarity drops matches scoring below the threshold.
func WithMinSimilarity(min float32) RetrieverOption {
	return func(r *Retriever) { r.minSimilarity = min }
}

// WithRetrieverClock overrides the time source, used by tests.
func WithRetrieverClock(now func() time.Time) RetrieverOption {
	return func(r *Retriever) { r.now = now }
}

// NewRetriever wires the read path. cipher may be nil when records are
// stored plaintext.
func NewRetriever(emb embedder.Embedder, store metastore.Store, failover *Failover, cipher fieldcrypt.Cipher, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder: emb,
		store:    store,
		failover: failover,
		cipher:   cipher,
		topK:     3,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to topK decrypted, recency-annotated memories
// relevant to the query, best first. An unavailable vector index yields
// an empty result and no error.
func (r *Retriever) Retrieve(ctx context.Context, ownerID, query string) ([]core.RankedMemory, error) {
	if err := metastore.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	r.metrics.retrieval()

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		// No vector, no search. Serve the degraded empty result.
		r.log.Warn("query embedding failed, serving empty retrieval",
			"owner_id", ownerID, "error", err)
		r.metrics.degradedRead()
		return nil, nil
	}

	// Over-fetch so per-record drops below still fill topK.
	matches, ok, err := r.failover.Query(ctx, ownerID, vec, r.topK*2)
	if err != nil {
		return nil, err
	}
	if !ok || len(matches) == 0 {
		return nil, nil
	}

	// Dedupe by id, keeping the best score.
	bestScore := make(map[string]float32, len(matches))
	order := make([]string, 0, len(matches))
	for _, m := range matches {
		if prev, seen := bestScore[m.ID]; seen {
			if m.Score > prev {
				bestScore[m.ID] = m.Score
			}
			continue
		}
		bestScore[m.ID] = m.Score
		order = append(order, m.ID)
	}

	records, err := r.store.GetMemories(ctx, ownerID, order)
	if err != nil {
		// Vector hits without hydratable records; degrade to empty.
		r.log.Warn("metadata hydration failed, serving empty retrieval",
			"owner_id", ownerID, "error", err)
		r.metrics.degradedRead()
		return nil, nil
	}

	now := r.now()

	// Decrypt and annotate concurrently; a slot stays nil when its
	// record is dropped.
	ranked := make([]*core.RankedMemory, len(records))
	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec core.Memory) {
			defer wg.Done()
			summary, err := rec.Summary.Reveal(r.cipher)
			if err != nil {
				r.log.Warn("dropping undecryptable memory record",
					"owner_id", ownerID, "memory_id", rec.ID, "error", err)
				r.metrics.droppedRecord()
				return
			}
			ranked[i] = &core.RankedMemory{
				Memory:  rec,
				Summary: summary,
				Score:   bestScore[rec.ID],
				Recency: RecencyLabel(rec.CreatedAt, now),
			}
		}(i, rec)
	}
	wg.Wait()

	results := make([]core.RankedMemory, 0, len(ranked))
	for _, rm := range ranked {
		if rm == nil {
			continue
		}
		if rm.Score < r.minSimilarity {
			continue
		}
		results = append(results, *rm)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Memory.CreatedAt.Equal(results[j].Memory.CreatedAt) {
			return results[i].Memory.CreatedAt.After(results[j].Memory.CreatedAt)
		}
		return results[i].Memory.ID < results[j].Memory.ID
	})

	if len(results) > r.topK {
		results = results[:r.topK]
	}
	return results, nil
}
