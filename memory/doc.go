// Package memory implements the hybrid long-term memory pipeline: the
// writer (significance analysis, encryption, dual-store persistence),
// the retriever (semantic search, decryption, recency annotation), and
// the failover controller that keeps vector index trouble away from the
// user-facing path.
//
// The two stores are linked only by the memory record id. The metadata
// store is the source of truth; the vector index is a rebuildable
// search accelerator, and the pipeline treats its failures as
// degradation, never as turn failures.
package memory
