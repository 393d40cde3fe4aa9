// Package responder generates the assistant's reply for a turn, given
// the retrieved memories, standing instructions, and the current
// conversational stage.
package responder

import (
	"context"

	"github.com/Dev-solder124/genAI/core"
)

// Input carries everything the generator may condition on.
type Input struct {
	Stage        core.Stage
	UserMessage  string
	DisplayName  string
	Memories     []core.RankedMemory
	Instructions []string
	Recent       []core.Turn
}

// Result is one generated reply.
type Result struct {
	Reply string

	// ProposedStage is the stage the model believes the conversation
	// should move to. Empty or invalid proposals leave the current
	// stage in place; validation happens in the stage controller.
	ProposedStage string
}

// Responder generates replies. A failure here is fatal to the turn;
// there is no canned fallback reply.
type Responder interface {
	Respond(ctx context.Context, in Input) (Result, error)
}
