package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

type DocumentKind string

const (
	KindResume DocumentKind = "resume"
	KindJob    DocumentKind = "job"
)

const msgNoTextExtracted = "no text could be extracted from the document"

// DocumentProcessor runs the extraction pipeline for one stored resume or
// job and persists the result.
type DocumentProcessor interface {
	Process(ctx context.Context, kind DocumentKind, id uuid.UUID) error
	Analyze(ctx context.Context, text string) models.Analysis
}

type documentProcessor struct {
	resumeRepo  repositories.ResumeRepository
	jobRepo     repositories.JobRepository
	storage     StorageService
	extractor   TextExtractor
	skills      SkillExtractor
	embeddings  EmbeddingService
	vectorIndex JobVectorIndex
	searchIndex JobSearchIndex
	events      EventPublisher
	locks       *keyedMutex
	log         *slog.Logger
}

func NewDocumentProcessor(
	resumeRepo repositories.ResumeRepository,
	jobRepo repositories.JobRepository,
	storage StorageService,
	extractor TextExtractor,
	skills SkillExtractor,
	embeddings EmbeddingService,
	vectorIndex JobVectorIndex,
	searchIndex JobSearchIndex,
	events EventPublisher,
	log *slog.Logger,
) DocumentProcessor {
	if vectorIndex == nil {
		vectorIndex = noopVectorIndex{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &documentProcessor{
		resumeRepo:  resumeRepo,
		jobRepo:     jobRepo,
		storage:     storage,
		extractor:   extractor,
		skills:      skills,
		embeddings:  embeddings,
		vectorIndex: vectorIndex,
		searchIndex: searchIndex,
		events:      events,
		locks:       newKeyedMutex(),
		log:         log.With("component", "processor"),
	}
}

// Process implements DocumentProcessor. Runs for the same document are
// serialized; a run that loses a race with another process gets
// repositories.ErrStaleAnalysis.
func (p *documentProcessor) Process(ctx context.Context, kind DocumentKind, id uuid.UUID) error {
	unlock := p.locks.Lock(string(kind) + ":" + id.String())
	defer unlock()

	switch kind {
	case KindResume:
		return p.processResume(ctx, id)
	case KindJob:
		return p.processJob(ctx, id)
	default:
		return fmt.Errorf("unknown document kind %q", kind)
	}
}

// Analyze implements DocumentProcessor. Skill extraction and embedding run
// concurrently.
func (p *documentProcessor) Analyze(ctx context.Context, text string) models.Analysis {
	var (
		wg        sync.WaitGroup
		skills    []string
		embedding *Embedding
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		skills = p.skills.Extract(ctx, text)
	}()
	go func() {
		defer wg.Done()
		embedding = p.embeddings.Generate(ctx, text)
	}()
	wg.Wait()

	analysis := models.Analysis{
		ExtractedText: text,
		Skills:        skills,
		Embedding:     SerializeEmbedding(embedding),
		Status:        models.StatusCompleted,
	}
	if embedding != nil {
		analysis.EmbeddingModel = embedding.Model
	}
	if text == "" {
		msg := msgNoTextExtracted
		analysis.ErrorMessage = &msg
	}

	return analysis
}

func (p *documentProcessor) processResume(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx, p.log).With("kind", KindResume, "id", id)

	if err := p.resumeRepo.UpdateStatus(id, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	resume, err := p.resumeRepo.FindByID(id)
	if err != nil {
		p.requeue(ctx, KindResume, id, err)
		return fmt.Errorf("failed to get resume: %w", err)
	}
	version := resume.AnalysisVersion

	log.Info("processing resume", "format", resume.Format, "analysis_version", version)

	data, err := p.storage.ReadFile(ctx, resume.StorageKey)
	if err != nil {
		p.markFailed(ctx, KindResume, id, version, fmt.Sprintf("failed to read stored document: %v", err))
		return fmt.Errorf("failed to read resume %s: %w", id, err)
	}

	text := p.extractor.Extract(data, resume.Format)
	analysis := p.Analyze(ctx, text)

	if err := p.resumeRepo.UpdateAnalysis(id, version, &analysis); err != nil {
		if errors.Is(err, repositories.ErrStaleAnalysis) {
			log.Warn("resume analysis superseded by a concurrent run", "analysis_version", version)
		} else {
			p.markFailed(ctx, KindResume, id, version, fmt.Sprintf("failed to save analysis: %v", err))
		}
		return fmt.Errorf("failed to save resume analysis: %w", err)
	}

	analysis.AnalysisVersion = version + 1
	p.publish(ctx, KindResume, id, &analysis, analysis.AnalysisVersion, "")

	log.Info("resume processed", "skills", len(analysis.Skills), "embedding_model", analysis.EmbeddingModel)
	return nil
}

func (p *documentProcessor) processJob(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx, p.log).With("kind", KindJob, "id", id)

	if err := p.jobRepo.UpdateStatus(id, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	job, err := p.jobRepo.FindByID(id)
	if err != nil {
		p.requeue(ctx, KindJob, id, err)
		return fmt.Errorf("failed to get job: %w", err)
	}
	version := job.AnalysisVersion

	log.Info("processing job", "title", job.Title, "analysis_version", version)

	analysis := p.Analyze(ctx, p.extractor.Extract([]byte(job.Description), models.FormatText))

	if err := p.jobRepo.UpdateAnalysis(id, version, &analysis); err != nil {
		if errors.Is(err, repositories.ErrStaleAnalysis) {
			log.Warn("job analysis superseded by a concurrent run", "analysis_version", version)
		} else {
			p.markFailed(ctx, KindJob, id, version, fmt.Sprintf("failed to save analysis: %v", err))
		}
		return fmt.Errorf("failed to save job analysis: %w", err)
	}
	analysis.AnalysisVersion = version + 1
	job.Analysis = analysis

	p.indexJob(ctx, job)
	p.publish(ctx, KindJob, id, &analysis, analysis.AnalysisVersion, "")

	log.Info("job processed", "skills", len(analysis.Skills), "embedding_model", analysis.EmbeddingModel)
	return nil
}

// markFailed records a failed run and publishes it. If the failure cannot be
// stored the row stays in processing until the worker requeues it.
func (p *documentProcessor) markFailed(ctx context.Context, kind DocumentKind, id uuid.UUID, version int, msg string) {
	var err error
	switch kind {
	case KindResume:
		err = p.resumeRepo.MarkFailed(id, version, msg)
	case KindJob:
		err = p.jobRepo.MarkFailed(id, version, msg)
	}
	if err != nil {
		logger.FromContext(ctx, p.log).Error("failed to mark document as failed", "kind", kind, "id", id, "error", err)
	}

	p.publish(ctx, kind, id, nil, version+1, msg)
}

// requeue puts a document whose row could not be loaded back in the queue.
func (p *documentProcessor) requeue(ctx context.Context, kind DocumentKind, id uuid.UUID, cause error) {
	if errors.Is(cause, repositories.ErrNotFound) {
		return
	}

	var err error
	switch kind {
	case KindResume:
		err = p.resumeRepo.UpdateStatus(id, models.StatusQueued)
	case KindJob:
		err = p.jobRepo.UpdateStatus(id, models.StatusQueued)
	}
	if err != nil {
		logger.FromContext(ctx, p.log).Error("failed to requeue document", "kind", kind, "id", id, "error", err)
	}
}

// indexJob refreshes the vector and keyword indexes. Failures are logged
// only; the database row is the source of truth.
func (p *documentProcessor) indexJob(ctx context.Context, job *models.Job) {
	log := logger.FromContext(ctx, p.log).With("kind", KindJob, "id", job.ID)

	embedding, err := DeserializeEmbedding(job.Embedding, job.EmbeddingModel)
	if err != nil {
		log.Warn("stored job embedding is corrupt", "error", err)
	}
	if err := p.vectorIndex.UpsertJob(ctx, job.ID, job.Title, embedding); err != nil {
		log.Warn("failed to index job vector", "error", err)
	}

	if p.searchIndex != nil {
		if err := p.searchIndex.IndexJob(job); err != nil {
			log.Warn("failed to index job text", "error", err)
		}
	}
}

func (p *documentProcessor) publish(ctx context.Context, kind DocumentKind, id uuid.UUID, analysis *models.Analysis, version int, errMsg string) {
	event := models.DocumentEvent{
		Type:            EventDocumentProcessed,
		Kind:            string(kind),
		ID:              id.String(),
		Status:          string(models.StatusCompleted),
		AnalysisVersion: version,
		CorrelationID:   logger.CorrelationID(ctx),
	}
	if errMsg != "" {
		event.Type = EventDocumentFailed
		event.Status = string(models.StatusFailed)
		event.Error = errMsg
	}
	if analysis != nil {
		event.Skills = analysis.Skills
		event.EmbeddingModel = analysis.EmbeddingModel
	}

	if err := p.events.Publish(ctx, event); err != nil {
		logger.FromContext(ctx, p.log).Warn("failed to publish event", "type", event.Type, "id", event.ID, "error", err)
	}
}

// keyedMutex hands out one mutex per key and frees it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
