package core

import (
	"time"

	"github.com/Dev-solder124/genAI/fieldcrypt"
)

// UserProfile is the per-owner document stored in the metadata store.
// Sensitive fields carry their own encryption flag so that legacy
// plaintext records remain readable next to encrypted ones.
type UserProfile struct {
	// OwnerID is the stable pseudonymous identifier that partitions
	// every store. It never changes for the life of the profile.
	OwnerID string

	DisplayName fieldcrypt.Field
	Contact     fieldcrypt.Field

	// Consent gates the entire write path: while false, the memory
	// writer must never persist anything for this owner.
	Consent   bool
	Anonymous bool

	// Instructions holds the owner's standing instructions, JSON-encoded
	// as a list and encrypted as a single unit.
	Instructions fieldcrypt.Field

	Stage             Stage
	CreatedAt         time.Time
	LastInteractionAt time.Time
}

// Memory is one remembered exchange. Its ID doubles as the join key to
// the vector index datapoint carrying the embedding.
type Memory struct {
	ID      string
	OwnerID string

	// Summary is the analyzer-produced summary of the exchange,
	// encrypted at rest.
	Summary fieldcrypt.Field

	// Topic and SessionID are plaintext, non-sensitive metadata.
	Topic     string
	SessionID string

	CreatedAt time.Time
}

// RankedMemory is a retrieval result: a hydrated, decrypted memory with
// its similarity score and a human-readable recency label. It is never
// persisted.
type RankedMemory struct {
	Memory  Memory
	Summary string

	// Score is the similarity to the query; dot product on unit
	// vectors, so higher means more similar.
	Score float32

	// Recency is a coarse label like "5 minutes ago" or "2 days ago".
	Recency string
}

// Exchange is a single user/assistant turn handed to the write path.
type Exchange struct {
	SessionID      string
	UserMessage    string
	AssistantReply string
}

// Turn is one entry in an owner's rolling session buffer.
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"ts"`
}

// WriteResult reports what the memory writer did for one exchange.
type WriteResult struct {
	// Stored is false when the exchange was judged not significant or
	// the analyzer was unavailable.
	Stored bool

	MemoryID string
	Summary  string

	// Indexed is false when the metadata record was written but the
	// vector upsert failed; the memory exists but is unreachable by
	// search until reconciled.
	Indexed bool

	// Instruction is the standing instruction extracted from the
	// exchange, if any.
	Instruction string
}
