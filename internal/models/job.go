package models

import (
	"time"

	"github.com/google/uuid"
)

// Job is a posted job description. Its description text goes through the
// same pipeline as an uploaded resume.
type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Analysis    `gorm:"embedded"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
