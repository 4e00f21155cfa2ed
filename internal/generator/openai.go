package generator

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemInstruction = "You are an expert educator who writes clear, atomic flashcards from study material."

// OpenAIGenerator implements Generator against an OpenAI-compatible chat
// completion endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator for the given credentials. With an
// empty API key the generator is created but every call returns
// ErrNotConfigured, so the rest of the app can start without a model.
func NewOpenAIGenerator(apiKey, model, endpoint string) *OpenAIGenerator {
	if apiKey == "" {
		return &OpenAIGenerator{}
	}

	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *OpenAIGenerator) disabled() bool {
	return g.client == nil || g.model == ""
}

// Generate sends one chat completion request and returns the first choice's
// text. No retries happen here; the pipeline decides what a failed chunk
// costs.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, cfg Config) (string, error) {
	if g.disabled() {
		return "", ErrNotConfigured
	}
	cfg = cfg.withDefaults()

	temperature := cfg.Temperature
	if !cfg.Sampling {
		// Greedy decoding when sampling is off.
		temperature = 0
	}

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: temperature,
		MaxTokens:   cfg.MaxOutputTokens,
		N:           cfg.CandidateCount,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}
	return content, nil
}
