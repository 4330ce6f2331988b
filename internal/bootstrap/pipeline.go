package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

// Pipeline holds the wired document pipeline shared by the API server and
// the maintenance scripts.
type Pipeline struct {
	ResumeRepo  repositories.ResumeRepository
	JobRepo     repositories.JobRepository
	Storage     services.StorageService
	Embeddings  services.EmbeddingService
	Generator   services.TextGenerator
	VectorIndex services.JobVectorIndex
	SearchIndex services.JobSearchIndex
	Events      services.EventPublisher
	Processor   services.DocumentProcessor
}

// NewPipeline builds every service the pipeline needs. Optional backends
// (LLM, Qdrant, RabbitMQ) degrade to no-op versions when not configured.
func NewPipeline(ctx context.Context, cfg *config.Config, db *gorm.DB, log *slog.Logger) (*Pipeline, error) {
	p := &Pipeline{
		ResumeRepo: repositories.NewResumeRepository(db),
		JobRepo:    repositories.NewJobRepository(db),
	}

	storage, err := services.NewStorageService(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	p.Storage = storage
	log.Info("storage initialized", "backend", cfg.Storage.Backend)

	var geminiClient *genai.Client
	if cfg.LLM.GeminiAPIKey != "" {
		geminiClient, err = services.NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini: %w", err)
		}
	} else {
		log.Warn("GEMINI_API_KEY not set, embeddings are disabled")
	}

	var embedder services.Embedder
	if geminiClient != nil {
		embedder = services.NewGeminiEmbedder(geminiClient, cfg.Embedding.Model, cfg.Embedding.Dimension)
	}
	p.Embeddings = services.NewEmbeddingService(embedder, cfg.Embedding.MaxTokens, log)

	p.Generator = newGenerator(cfg.LLM, geminiClient, log)

	taxonomy := services.DefaultTaxonomy()
	if cfg.Skills.TaxonomyPath != "" {
		taxonomy, err = services.LoadTaxonomy(cfg.Skills.TaxonomyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load skills taxonomy: %w", err)
		}
	}

	var recognizer services.EntityRecognizer
	if cfg.Skills.NEREnabled {
		recognizer = services.NewLLMEntityRecognizer(p.Generator)
	}
	skills := services.NewSkillExtractor(taxonomy, recognizer, log)

	p.VectorIndex, err = services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		cfg.Embedding.Dimension,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Qdrant: %w", err)
	}
	if err := p.VectorIndex.InitCollection(ctx); err != nil {
		log.Warn("Qdrant unavailable, similar-job search is disabled", "error", err)
		p.VectorIndex = services.NewNoopVectorIndex()
	}

	p.SearchIndex, err = services.NewJobSearchIndex(cfg.Search.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open job search index: %w", err)
	}

	p.Events, err = services.NewEventPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange, log)
	if err != nil {
		p.SearchIndex.Close()
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	p.Processor = services.NewDocumentProcessor(
		p.ResumeRepo,
		p.JobRepo,
		p.Storage,
		services.NewTextExtractor(log),
		skills,
		p.Embeddings,
		p.VectorIndex,
		p.SearchIndex,
		p.Events,
		log,
	)

	return p, nil
}

func newGenerator(cfg config.LLMConfig, geminiClient *genai.Client, log *slog.Logger) services.TextGenerator {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Warn("OPENAI_API_KEY not set, generative features are unavailable")
			return services.NewUnavailableGenerator()
		}
		return services.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Models, cfg.Timeout, cfg.MaxAttempts, log)
	default:
		return services.NewGeminiGenerator(geminiClient, cfg.Models, cfg.Timeout, cfg.MaxAttempts, log)
	}
}

// Close releases the search index and event connection.
func (p *Pipeline) Close() error {
	return errors.Join(p.SearchIndex.Close(), p.Events.Close())
}
