package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/Dev-solder124/genAI/core"
)

const defaultResponderModel = "claude-sonnet-4-5"

var stageGuidance = map[core.Stage]string{
	core.StageRelationshipBuilding: "Focus on warmth and trust. Ask gentle open questions; do not push toward goals yet.",
	core.StageExploration:          "Help the user explore feelings and situations in depth. Reflect and clarify.",
	core.StageGoalSetting:          "Help the user articulate concrete, achievable goals.",
	core.StageActionSupport:        "Support the user's concrete steps. Reference past coping strategies and progress.",
	core.StageIntervention:         "The user may be struggling acutely. Prioritize safety, validation, and crisis resources.",
}

// AnthropicResponder implements Responder on the Anthropic Messages
// API.
type AnthropicResponder struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicOption configures an AnthropicResponder.
type AnthropicOption func(*AnthropicResponder)

// WithModel overrides the generation model.
func WithModel(model string) AnthropicOption {
	return func(r *AnthropicResponder) { r.model = model }
}

// WithMaxTokens overrides the reply token budget.
func WithMaxTokens(n int64) AnthropicOption {
	return func(r *AnthropicResponder) { r.maxTokens = n }
}

// NewAnthropic creates a responder backed by the given client.
func NewAnthropic(client *anthropic.Client, opts ...AnthropicOption) *AnthropicResponder {
	r := &AnthropicResponder{
		client:    client,
		model:     defaultResponderModel,
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *AnthropicResponder) systemPrompt(in Input) string {
	var sb strings.Builder
	sb.WriteString("You are a supportive, validating, non-judgemental companion. If the user expresses crisis language, provide crisis resources.\n\n")

	fmt.Fprintf(&sb, "Current conversational stage: %s. %s\n", in.Stage, stageGuidance[in.Stage])

	if in.DisplayName != "" {
		fmt.Fprintf(&sb, "\nThe user's name is %s.\n", in.DisplayName)
	}

	if len(in.Instructions) > 0 {
		sb.WriteString("\nStanding instructions from the user:\n")
		for _, inst := range in.Instructions {
			fmt.Fprintf(&sb, "- %s\n", inst)
		}
	}

	if len(in.Memories) > 0 {
		sb.WriteString("\nWhat you remember about the user from past conversations:\n")
		for _, m := range in.Memories {
			fmt.Fprintf(&sb, "- %s (%s)\n", m.Summary, m.Recency)
		}
		sb.WriteString("Reference these naturally when relevant; never recite them verbatim or mention that you keep records.\n")
	}

	sb.WriteString("\nReply empathetically and concisely, referencing past coping strategies when relevant.\n")
	fmt.Fprintf(&sb, "After your reply, on the final line output exactly one JSON object: {\"stage\": \"<one of: %s>\"} naming the stage the conversation should be in next.", stageList())
	return sb.String()
}

func stageList() string {
	names := make([]string, 0, len(core.Stages()))
	for _, s := range core.Stages() {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

// Respond generates a reply and the model's stage proposal.
func (r *AnthropicResponder) Respond(ctx context.Context, in Input) (Result, error) {
	messages := make([]anthropic.MessageParam, 0, len(in.Recent)*2+1)
	for _, turn := range in.Recent {
		if turn.User != "" {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.User)))
		}
		if turn.Assistant != "" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Assistant)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(in.UserMessage)))

	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: r.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: r.systemPrompt(in)},
		},
		Messages: messages,
	})
	if err != nil {
		return Result{}, fmt.Errorf("responder: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	reply, stage := splitReply(text)
	if reply == "" {
		return Result{}, fmt.Errorf("responder: empty reply")
	}
	return Result{Reply: reply, ProposedStage: stage}, nil
}

// splitReply separates the trailing stage JSON from the reply text. A
// missing or malformed trailer leaves the proposal empty; the reply
// itself is never discarded over it.
func splitReply(text string) (reply, stage string) {
	text = strings.TrimSpace(text)
	idx := strings.LastIndex(text, "\n")
	if idx < 0 {
		return text, ""
	}

	last := strings.TrimSpace(text[idx+1:])
	var doc struct {
		Stage string `json:"stage"`
	}
	if err := json.Unmarshal([]byte(last), &doc); err != nil || doc.Stage == "" {
		return text, ""
	}
	return strings.TrimSpace(text[:idx]), doc.Stage
}
