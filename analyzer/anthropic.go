package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/Dev-solder124/genAI/core"
)

const analyzerSystemPrompt = `You analyze one exchange from a supportive conversation and decide if it contains personally significant information worth remembering long-term: life events, emotional states, goals, relationships, health, work, or standing instructions about how the user wants to be treated.

Small talk, greetings, and generic questions are not significant.

Respond with ONLY a JSON object, no other text:
{"significant": true|false, "summary": "<third-person summary, max 25 words, empty if not significant>", "topic": "<one or two word topic label, empty if not significant>", "instruction": "<standing instruction the user gave, empty if none>"}`

const defaultAnalyzerModel = "claude-3-5-haiku-latest"

// AnthropicAnalyzer implements Analyzer on the Anthropic Messages API.
type AnthropicAnalyzer struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicOption configures an AnthropicAnalyzer.
type AnthropicOption func(*AnthropicAnalyzer)

// WithModel overrides the analysis model.
func WithModel(model string) AnthropicOption {
	return func(a *AnthropicAnalyzer) { a.model = model }
}

// NewAnthropic creates an analyzer backed by the given client.
func NewAnthropic(client *anthropic.Client, opts ...AnthropicOption) *AnthropicAnalyzer {
	a := &AnthropicAnalyzer{
		client:    client,
		model:     defaultAnalyzerModel,
		maxTokens: 512,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze asks the model for a significance judgment. Errors wrap
// core.ErrAnalyzer; callers degrade to "not significant".
func (a *AnthropicAnalyzer) Analyze(ctx context.Context, exch core.Exchange, recent []core.Turn) (Result, error) {
	var sb strings.Builder
	if len(recent) > 0 {
		sb.WriteString("Recent conversation context:\n")
		for _, turn := range recent {
			fmt.Fprintf(&sb, "user: %s\nassistant: %s\n", turn.User, turn.Assistant)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Exchange to analyze:\nuser: %s\nassistant: %s", exch.UserMessage, exch.AssistantReply)

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: analyzerSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", core.ErrAnalyzer, err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	result, err := parseAnalysis(text)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", core.ErrAnalyzer, err)
	}
	return result, nil
}

// parseAnalysis extracts the JSON object from model output, tolerating
// surrounding prose or code fences.
func parseAnalysis(text string) (Result, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in analyzer output")
	}

	var doc struct {
		Significant bool   `json:"significant"`
		Summary     string `json:"summary"`
		Topic       string `json:"topic"`
		Instruction string `json:"instruction"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &doc); err != nil {
		return Result{}, fmt.Errorf("decode analyzer output: %w", err)
	}

	result := Result{
		Significant: doc.Significant,
		Summary:     strings.TrimSpace(doc.Summary),
		Topic:       strings.TrimSpace(doc.Topic),
		Instruction: strings.TrimSpace(doc.Instruction),
	}
	// A significant exchange with no summary is unusable.
	if result.Significant && result.Summary == "" {
		result.Significant = false
	}
	return result, nil
}
