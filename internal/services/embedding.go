package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"alfredoptarigan/resume-matcher/internal/logger"
)

// Embedding is a dense vector tagged with the model that produced it.
// A nil *Embedding means "unavailable".
type Embedding struct {
	Model  string
	Vector []float32
}

func (e *Embedding) Dimension() int {
	if e == nil {
		return 0
	}
	return len(e.Vector)
}

// Embedder is the raw model client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}

// EmbeddingService produces embeddings for document text. It never returns
// an error; failures yield nil.
type EmbeddingService interface {
	Generate(ctx context.Context, text string) *Embedding
	Model() string
}

type embeddingService struct {
	embedder  Embedder
	maxTokens int
	log       *slog.Logger
}

// NewEmbeddingService wraps embedder. A nil embedder is allowed and makes
// every call return nil.
func NewEmbeddingService(embedder Embedder, maxTokens int, log *slog.Logger) EmbeddingService {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &embeddingService{
		embedder:  embedder,
		maxTokens: maxTokens,
		log:       log.With("component", "embedding"),
	}
}

// Generate implements EmbeddingService.
func (s *embeddingService) Generate(ctx context.Context, text string) *Embedding {
	log := logger.FromContext(ctx, s.log)

	if s.embedder == nil {
		log.Warn("embedding model not initialised")
		return nil
	}

	text = truncateTokens(text, s.maxTokens)
	if text == "" {
		return nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		log.Warn("embedding failed", "model", s.embedder.Model(), "error", err)
		return nil
	}

	if want := s.embedder.Dimension(); want > 0 && len(vector) != want {
		log.Warn("embedding has unexpected dimension", "model", s.embedder.Model(), "got", len(vector), "want", want)
		return nil
	}
	if len(vector) == 0 {
		return nil
	}

	return &Embedding{Model: s.embedder.Model(), Vector: vector}
}

// Model implements EmbeddingService.
func (s *embeddingService) Model() string {
	if s.embedder == nil {
		return ""
	}
	return s.embedder.Model()
}

// truncateTokens keeps the first n whitespace separated tokens, joined by
// single spaces.
func truncateTokens(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

var ErrCorruptEmbedding = errors.New("corrupt embedding blob")

// SerializeEmbedding encodes the vector as little-endian float32 values.
// The model tag is stored separately.
func SerializeEmbedding(e *Embedding) []byte {
	if e == nil || len(e.Vector) == 0 {
		return nil
	}

	buf := make([]byte, 4*len(e.Vector))
	for i, v := range e.Vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DeserializeEmbedding is the inverse of SerializeEmbedding. An empty blob or
// an empty model tag yields nil.
func DeserializeEmbedding(data []byte, model string) (*Embedding, error) {
	if len(data) == 0 || model == "" {
		return nil, nil
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrCorruptEmbedding, len(data))
	}

	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return &Embedding{Model: model, Vector: vector}, nil
}
