package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrStaleAnalysis is returned when another run already replaced the
	// analysis this write was computed from.
	ErrStaleAnalysis = errors.New("analysis was updated concurrently")
)

// updateAnalysis replaces the whole analysis of one row, but only if its
// analysis_version still equals expectedVersion. The version is bumped on
// success.
func updateAnalysis(db *gorm.DB, model interface{}, kind string, id uuid.UUID, expectedVersion int, a *models.Analysis) error {
	now := time.Now()

	result := db.Model(model).
		Where("id = ? AND analysis_version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"extracted_text":   a.ExtractedText,
			"skills":           a.Skills,
			"embedding":        a.Embedding,
			"embedding_model":  a.EmbeddingModel,
			"status":           a.Status,
			"error_message":    a.ErrorMessage,
			"processed_at":     now,
			"analysis_version": expectedVersion + 1,
			"updated_at":       now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update %s analysis: %w", kind, result.Error)
	}

	if result.RowsAffected == 0 {
		return missingOrStale(db, model, kind, id)
	}

	return nil
}

func updateStatus(db *gorm.DB, model interface{}, kind string, id uuid.UUID, status models.ProcessingStatus) error {
	result := db.Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update %s status: %w", kind, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", kind, ErrNotFound)
	}

	return nil
}

func markFailed(db *gorm.DB, model interface{}, kind string, id uuid.UUID, expectedVersion int, errorMsg string) error {
	result := db.Model(model).
		Where("id = ? AND analysis_version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"status":           models.StatusFailed,
			"error_message":    errorMsg,
			"analysis_version": expectedVersion + 1,
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update %s error: %w", kind, result.Error)
	}

	if result.RowsAffected == 0 {
		return missingOrStale(db, model, kind, id)
	}

	return nil
}

// requeueStale moves rows stuck in processing since before cutoff back to
// queued, so a run that died midway is picked up again.
func requeueStale(db *gorm.DB, model interface{}, kind string, cutoff time.Time) (int64, error) {
	result := db.Model(model).
		Where("status = ? AND updated_at < ?", models.StatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     models.StatusQueued,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to requeue stale %s rows: %w", kind, result.Error)
	}

	return result.RowsAffected, nil
}

func missingOrStale(db *gorm.DB, model interface{}, kind string, id uuid.UUID) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check %s: %w", kind, err)
	}
	if count == 0 {
		return fmt.Errorf("%s not found: %w", kind, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", kind, id, ErrStaleAnalysis)
}

func wrapFind(kind string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s not found: %w", kind, ErrNotFound)
	}
	return fmt.Errorf("failed to find %s: %w", kind, err)
}
