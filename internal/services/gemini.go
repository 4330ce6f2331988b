package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// NewGeminiClient creates the shared genai client. It is built once at
// startup and injected into the embedder and the generator.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is empty", ErrLLMUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return client, nil
}

type geminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiEmbedder embeds text with a fixed Gemini embedding model.
func NewGeminiEmbedder(client *genai.Client, model string, dimension int) Embedder {
	return &geminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
	}
}

// Embed implements Embedder.
func (g *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.dimension > 0 {
		dim := int32(g.dimension)
		cfg.OutputDimensionality = &dim
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// Model implements Embedder.
func (g *geminiEmbedder) Model() string {
	return g.model
}

// Dimension implements Embedder.
func (g *geminiEmbedder) Dimension() int {
	return g.dimension
}

type geminiGenerator struct {
	client   *genai.Client
	selector *modelSelector
	log      *slog.Logger
}

// NewGeminiGenerator generates text with the first Gemini model among
// candidates that answers a probe prompt.
func NewGeminiGenerator(client *genai.Client, candidates []string, timeout time.Duration, maxAttempts int, log *slog.Logger) TextGenerator {
	if client == nil || len(candidates) == 0 {
		return NewUnavailableGenerator()
	}

	g := &geminiGenerator{
		client: client,
		log:    log.With("component", "gemini"),
	}
	g.selector = newModelSelector(candidates, g.probe, timeout, maxAttempts, g.log)

	return g
}

func (g *geminiGenerator) probe(ctx context.Context, model string) error {
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
func (g *geminiGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	return g.selector.Generate(ctx, func(ctx context.Context, model string) (string, error) {
		return g.call(ctx, model, prompt, temperature)
	})
}

func (g *geminiGenerator) call(ctx context.Context, model, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if resp == nil {
		return "", errors.New("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("no text content in response")
	}

	return text, nil
}
