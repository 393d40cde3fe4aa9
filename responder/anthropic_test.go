package responder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitReply(t *testing.T) {
	reply, stage := splitReply("That sounds really hard. I'm here with you.\n{\"stage\": \"exploration\"}")
	assert.Equal(t, "That sounds really hard. I'm here with you.", reply)
	assert.Equal(t, "exploration", stage)
}

func TestSplitReplyNoTrailer(t *testing.T) {
	reply, stage := splitReply("Just a plain reply with no stage line.")
	assert.Equal(t, "Just a plain reply with no stage line.", reply)
	assert.Empty(t, stage)
}

func TestSplitReplyMalformedTrailerKeptInReply(t *testing.T) {
	reply, stage := splitReply("First line.\nnot json at all")
	assert.Equal(t, "First line.\nnot json at all", reply)
	assert.Empty(t, stage)
}

func TestSplitReplyMultiline(t *testing.T) {
	reply, stage := splitReply("Line one.\nLine two.\n{\"stage\": \"goal_setting\"}")
	assert.Equal(t, "Line one.\nLine two.", reply)
	assert.Equal(t, "goal_setting", stage)
}
