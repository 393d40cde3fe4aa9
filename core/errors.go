package core

import "errors"

// Error taxonomy for the memory subsystem. Components wrap these
// sentinels so callers can branch on errors.Is without depending on
// implementation details.
var (
	// ErrEmbedding: the embedding collaborator failed or timed out.
	// Fatal to a single write; never retried.
	ErrEmbedding = errors.New("embedding failure")

	// ErrVectorIndexUnavailable: the ANN index is unreachable or not
	// configured. Absorbed by the failover controller; never surfaces
	// to the end user.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrMetadataStore: the document store failed. Fatal to a single
	// write, non-fatal per-record on reads.
	ErrMetadataStore = errors.New("metadata store failure")

	// ErrDecryption: a stored field could not be decrypted. Non-fatal
	// per-record; the record is dropped from results.
	ErrDecryption = errors.New("decryption failure")

	// ErrAnalyzer: the significance analyzer failed or timed out.
	// Defaults the exchange to "not significant".
	ErrAnalyzer = errors.New("significance analyzer failure")

	// ErrInvalidStage: a proposed stage is outside the known set. The
	// controller keeps the prior stage.
	ErrInvalidStage = errors.New("invalid stage value")

	// ErrProfileNotFound: no profile document exists for the owner.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidOwnerID: the owner id is empty or contains characters
	// that would break key partitioning. Always fails closed.
	ErrInvalidOwnerID = errors.New("invalid owner id")
)
