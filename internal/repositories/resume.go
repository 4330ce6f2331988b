package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/models"
)

type ResumeRepository interface {
	Create(resume *models.Resume) error
	FindByID(id uuid.UUID) (*models.Resume, error)
	List(limit, offset int) ([]models.Resume, error)
	UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error
	UpdateAnalysis(id uuid.UUID, expectedVersion int, analysis *models.Analysis) error
	MarkFailed(id uuid.UUID, expectedVersion int, errorMsg string) error
	FindPending(limit int) ([]models.Resume, error)
	FindForReprocessing(embeddingModel string, limit int) ([]models.Resume, error)
	RequeueStale(cutoff time.Time) (int64, error)
}

type resumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

// Create implements ResumeRepository.
func (r *resumeRepository) Create(resume *models.Resume) error {
	if err := r.db.Create(resume).Error; err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}
	return nil
}

// FindByID implements ResumeRepository.
func (r *resumeRepository) FindByID(id uuid.UUID) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.Where("id = ?", id).First(&resume).Error; err != nil {
		return nil, wrapFind("resume", err)
	}
	return &resume, nil
}

// List implements ResumeRepository. Extracted text is left out.
func (r *resumeRepository) List(limit, offset int) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.
		Omit("extracted_text", "embedding").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&resumes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return resumes, nil
}

// UpdateStatus implements ResumeRepository.
func (r *resumeRepository) UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error {
	return updateStatus(r.db, &models.Resume{}, "resume", id, status)
}

// UpdateAnalysis implements ResumeRepository.
func (r *resumeRepository) UpdateAnalysis(id uuid.UUID, expectedVersion int, analysis *models.Analysis) error {
	return updateAnalysis(r.db, &models.Resume{}, "resume", id, expectedVersion, analysis)
}

// MarkFailed implements ResumeRepository.
func (r *resumeRepository) MarkFailed(id uuid.UUID, expectedVersion int, errorMsg string) error {
	return markFailed(r.db, &models.Resume{}, "resume", id, expectedVersion, errorMsg)
}

// FindPending implements ResumeRepository.
func (r *resumeRepository) FindPending(limit int) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.
		Select("id").
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&resumes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending resumes: %w", err)
	}
	return resumes, nil
}

// FindForReprocessing implements ResumeRepository. It returns rows that
// failed or were embedded by a different model.
func (r *resumeRepository) FindForReprocessing(embeddingModel string, limit int) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.
		Select("id", "embedding_model", "status").
		Where("status = ? OR (status = ? AND embedding_model <> ?)", models.StatusFailed, models.StatusCompleted, embeddingModel).
		Order("created_at ASC").
		Limit(limit).
		Find(&resumes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find resumes for reprocessing: %w", err)
	}
	return resumes, nil
}

// RequeueStale implements ResumeRepository.
func (r *resumeRepository) RequeueStale(cutoff time.Time) (int64, error) {
	return requeueStale(r.db, &models.Resume{}, "resume", cutoff)
}
