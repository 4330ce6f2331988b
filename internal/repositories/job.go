package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/models"
)

type JobRepository interface {
	Create(job *models.Job) error
	FindByID(id uuid.UUID) (*models.Job, error)
	FindByIDs(ids []uuid.UUID) ([]models.Job, error)
	FindLatest() (*models.Job, error)
	List(limit, offset int) ([]models.Job, error)
	UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error
	UpdateAnalysis(id uuid.UUID, expectedVersion int, analysis *models.Analysis) error
	MarkFailed(id uuid.UUID, expectedVersion int, errorMsg string) error
	FindPending(limit int) ([]models.Job, error)
	FindForReprocessing(embeddingModel string, limit int) ([]models.Job, error)
	RequeueStale(cutoff time.Time) (int64, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// Create implements JobRepository.
func (r *jobRepository) Create(job *models.Job) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// FindByID implements JobRepository.
func (r *jobRepository) FindByID(id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		return nil, wrapFind("job", err)
	}
	return &job, nil
}

// FindByIDs implements JobRepository.
func (r *jobRepository) FindByIDs(ids []uuid.UUID) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.Where("id IN ?", ids).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to find jobs: %w", err)
	}
	return jobs, nil
}

// FindLatest implements JobRepository.
func (r *jobRepository) FindLatest() (*models.Job, error) {
	var job models.Job
	if err := r.db.Order("created_at DESC").First(&job).Error; err != nil {
		return nil, wrapFind("job", err)
	}
	return &job, nil
}

// List implements JobRepository.
func (r *jobRepository) List(limit, offset int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Omit("extracted_text", "embedding").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// UpdateStatus implements JobRepository.
func (r *jobRepository) UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error {
	return updateStatus(r.db, &models.Job{}, "job", id, status)
}

// UpdateAnalysis implements JobRepository.
func (r *jobRepository) UpdateAnalysis(id uuid.UUID, expectedVersion int, analysis *models.Analysis) error {
	return updateAnalysis(r.db, &models.Job{}, "job", id, expectedVersion, analysis)
}

// MarkFailed implements JobRepository.
func (r *jobRepository) MarkFailed(id uuid.UUID, expectedVersion int, errorMsg string) error {
	return markFailed(r.db, &models.Job{}, "job", id, expectedVersion, errorMsg)
}

// FindPending implements JobRepository.
func (r *jobRepository) FindPending(limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Select("id").
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}
	return jobs, nil
}

// FindForReprocessing implements JobRepository.
func (r *jobRepository) FindForReprocessing(embeddingModel string, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Select("id", "embedding_model", "status").
		Where("status = ? OR (status = ? AND embedding_model <> ?)", models.StatusFailed, models.StatusCompleted, embeddingModel).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find jobs for reprocessing: %w", err)
	}
	return jobs, nil
}

// RequeueStale implements JobRepository.
func (r *jobRepository) RequeueStale(cutoff time.Time) (int64, error) {
	return requeueStale(r.db, &models.Job{}, "job", cutoff)
}
