// Package analyzer decides whether an exchange is worth remembering and
// distills it when it is.
package analyzer

import (
	"context"

	"github.com/Dev-solder124/genAI/core"
)

// Result is the analyzer's judgment on one exchange.
type Result struct {
	// Significant gates the whole write path. When false nothing is
	// stored.
	Significant bool

	// Summary is a short third-person distillation of the exchange,
	// e.g. "User lost job, feeling anxious". Empty when not
	// significant.
	Summary string

	// Topic is a coarse plaintext label for the summary, safe to store
	// unencrypted.
	Topic string

	// Instruction is a standing instruction the user issued in this
	// exchange ("call me Captain"), or empty.
	Instruction string
}

// Analyzer judges exchanges. Implementations may use recent turns as
// context; callers treat any error as "not significant".
type Analyzer interface {
	Analyze(ctx context.Context, exch core.Exchange, recent []core.Turn) (Result, error)
}
