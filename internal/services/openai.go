package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const openAIMaxTokens = 4096

type openAIGenerator struct {
	client   *openai.Client
	selector *modelSelector
	log      *slog.Logger
}

// NewOpenAIGenerator talks to any OpenAI compatible chat completions API.
// An empty apiKey yields a generator that is always unavailable.
func NewOpenAIGenerator(apiKey, baseURL string, candidates []string, timeout time.Duration, maxAttempts int, log *slog.Logger) TextGenerator {
	if apiKey == "" || len(candidates) == 0 {
		return NewUnavailableGenerator()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	g := &openAIGenerator{
		client: &client,
		log:    log.With("component", "openai"),
	}
	g.selector = newModelSelector(candidates, g.probe, timeout, maxAttempts, g.log)

	return g
}

func (g *openAIGenerator) probe(ctx context.Context, model string) error {
	text, err := g.call(ctx, model, probePrompt, 0)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("empty probe response")
	}
	return nil
}

// Generate implements TextGenerator.
func (g *openAIGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	return g.selector.Generate(ctx, func(ctx context.Context, model string) (string, error) {
		return g.call(ctx, model, prompt, temperature)
	})
}

func (g *openAIGenerator) call(ctx context.Context, model, prompt string, temperature float32) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(openAIMaxTokens),
		Temperature: openai.Float(float64(temperature)),
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", errors.New("no text content in response")
	}

	return text, nil
}
