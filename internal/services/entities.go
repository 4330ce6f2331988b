package services

import (
	"context"
	"fmt"
	"strings"
)

type EntityLabel string

const (
	EntityOrg     EntityLabel = "ORG"
	EntityProduct EntityLabel = "PRODUCT"
	EntityPerson  EntityLabel = "PERSON"
	EntityOther   EntityLabel = "OTHER"
)

type Entity struct {
	Text  string      `json:"text"`
	Label EntityLabel `json:"label"`
}

// EntityRecognizer labels named entities in a short text window.
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

type llmEntityRecognizer struct {
	generator     TextGenerator
	promptBuilder *PromptBuilder
}

// NewLLMEntityRecognizer recognizes entities by asking the generative model
// for a JSON list.
func NewLLMEntityRecognizer(generator TextGenerator) EntityRecognizer {
	return &llmEntityRecognizer{
		generator:     generator,
		promptBuilder: NewPromptBuilder(),
	}
}

// Recognize implements EntityRecognizer.
func (r *llmEntityRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	response, err := r.generator.Generate(ctx, r.promptBuilder.BuildEntityPrompt(text), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to recognize entities: %w", err)
	}

	var payload struct {
		Entities []Entity `json:"entities"`
	}
	if err := decodeModelJSON(response, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse entities: %w", err)
	}

	for i := range payload.Entities {
		payload.Entities[i].Label = EntityLabel(strings.ToUpper(strings.TrimSpace(string(payload.Entities[i].Label))))
	}

	return payload.Entities, nil
}
