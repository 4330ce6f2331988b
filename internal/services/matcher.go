package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

const (
	DefaultSimilarJobsLimit = 5
	MaxSimilarJobsLimit     = 50
)

// MatchService compares processed resumes against processed jobs.
type MatchService interface {
	Match(ctx context.Context, resumeID, jobID uuid.UUID) (*models.MatchReport, error)
	MatchLatest(ctx context.Context, resumeID uuid.UUID) (*models.MatchReport, error)
	SimilarJobs(ctx context.Context, resumeID uuid.UUID, limit int) ([]models.SimilarJob, error)
}

type matchService struct {
	resumeRepo  repositories.ResumeRepository
	jobRepo     repositories.JobRepository
	vectorIndex JobVectorIndex
	log         *slog.Logger
}

func NewMatchService(
	resumeRepo repositories.ResumeRepository,
	jobRepo repositories.JobRepository,
	vectorIndex JobVectorIndex,
	log *slog.Logger,
) MatchService {
	if vectorIndex == nil {
		vectorIndex = noopVectorIndex{}
	}
	return &matchService{
		resumeRepo:  resumeRepo,
		jobRepo:     jobRepo,
		vectorIndex: vectorIndex,
		log:         log.With("component", "matcher"),
	}
}

// Match implements MatchService.
func (m *matchService) Match(ctx context.Context, resumeID, jobID uuid.UUID) (*models.MatchReport, error) {
	resume, err := m.resumeRepo.FindByID(resumeID)
	if err != nil {
		return nil, err
	}

	job, err := m.jobRepo.FindByID(jobID)
	if err != nil {
		return nil, err
	}

	return m.buildReport(ctx, resume, job), nil
}

// MatchLatest implements MatchService by matching against the newest job.
func (m *matchService) MatchLatest(ctx context.Context, resumeID uuid.UUID) (*models.MatchReport, error) {
	resume, err := m.resumeRepo.FindByID(resumeID)
	if err != nil {
		return nil, err
	}

	job, err := m.jobRepo.FindLatest()
	if err != nil {
		return nil, err
	}

	return m.buildReport(ctx, resume, job), nil
}

func (m *matchService) buildReport(ctx context.Context, resume *models.Resume, job *models.Job) *models.MatchReport {
	log := logger.FromContext(ctx, m.log).With("resume_id", resume.ID, "job_id", job.ID)

	report := &models.MatchReport{
		ResumeID:      resume.ID.String(),
		JobID:         job.ID.String(),
		JobTitle:      job.Title,
		Status:        models.MatchSuccess,
		MissingSkills: MissingSkills(resume.Skills, job.Skills),
		ResumeSkills:  nonNil(resume.Skills),
		JobSkills:     nonNil(job.Skills),
	}

	resumeEmb := m.loadEmbedding(log, resume.Analysis)
	jobEmb := m.loadEmbedding(log, job.Analysis)
	if resumeEmb == nil || jobEmb == nil {
		report.Status = models.MatchEmbeddingsUnavailable
		return report
	}

	score, err := MatchScore(resumeEmb, jobEmb)
	switch {
	case errors.Is(err, ErrIncompatibleEmbeddings), errors.Is(err, ErrDimensionMismatch):
		log.Warn("refusing to compare embeddings",
			"resume_model", resumeEmb.Model, "job_model", jobEmb.Model,
			"resume_dim", resumeEmb.Dimension(), "job_dim", jobEmb.Dimension(), "error", err)
		report.Status = models.MatchIncompatibleEmbeddings
		return report
	case err != nil:
		log.Error("match scoring failed", "error", err)
		report.Status = models.MatchEmbeddingsUnavailable
		return report
	}

	report.MatchScore = score
	return report
}

func (m *matchService) loadEmbedding(log *slog.Logger, a models.Analysis) *Embedding {
	emb, err := DeserializeEmbedding(a.Embedding, a.EmbeddingModel)
	if err != nil {
		log.Warn("stored embedding is corrupt", "error", err)
		return nil
	}
	return emb
}

// SimilarJobs implements MatchService. Scores use the same 0-100 scale as
// Match.
func (m *matchService) SimilarJobs(ctx context.Context, resumeID uuid.UUID, limit int) ([]models.SimilarJob, error) {
	if limit <= 0 {
		limit = DefaultSimilarJobsLimit
	}
	if limit > MaxSimilarJobsLimit {
		limit = MaxSimilarJobsLimit
	}

	resume, err := m.resumeRepo.FindByID(resumeID)
	if err != nil {
		return nil, err
	}

	emb := m.loadEmbedding(logger.FromContext(ctx, m.log), resume.Analysis)
	if emb == nil {
		return []models.SimilarJob{}, nil
	}

	hits, err := m.vectorIndex.SearchJobs(ctx, emb, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar jobs: %w", err)
	}

	jobs := make([]models.SimilarJob, 0, len(hits))
	for _, hit := range hits {
		jobs = append(jobs, models.SimilarJob{
			JobID:      hit.JobID.String(),
			Title:      hit.Title,
			MatchScore: similarityToScore(float64(hit.Score)),
		})
	}
	return jobs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
