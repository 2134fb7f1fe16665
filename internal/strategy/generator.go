package strategy

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

// Plan is the typed result of one strategy call.
type Plan struct {
	Text  string
	Model string
}

// NewClient builds the API client handle. One handle is shared across all
// concurrent tasks; calls are independent and carry no session state, so
// no external locking is needed.
func NewClient(apiKey string) *openai.Client {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &c
}

// Generator produces migration plans via the completion API.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// New creates a Generator around a shared client handle.
func New(client *openai.Client, model string, maxTokens int) *Generator {
	return &Generator{client: client, model: model, maxTokens: maxTokens}
}

// Generate requests a migration plan for the repository. A refusal from
// the model is surfaced as a GenerationError, never swallowed.
func (g *Generator) Generate(ctx context.Context, repoName, contextText string) (*Plan, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(g.model),
		MaxTokens: openai.Int(int64(g.maxTokens)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(repoName, contextText)),
		},
	})
	if err != nil {
		return nil, &domain.GenerationError{Reason: err.Error()}
	}
	return planFromCompletion(g.model, resp)
}

// planFromCompletion maps the raw completion onto a typed Plan, checking
// the failure modes explicitly instead of inspecting response shapes at
// call sites.
func planFromCompletion(model string, resp *openai.ChatCompletion) (*Plan, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &domain.GenerationError{Reason: "empty completion response"}
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return nil, &domain.GenerationError{Reason: msg.Refusal, Refusal: true}
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return nil, &domain.GenerationError{Reason: "completion contained no plan text"}
	}

	return &Plan{Text: text, Model: model}, nil
}
