package models

import (
	"time"

	"github.com/google/uuid"
)

type Resume struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Filename         string         `gorm:"type:text" json:"filename"`
	OriginalFileName string         `gorm:"type:text" json:"original_filename"`
	Format           DocumentFormat `gorm:"type:text" json:"format"`
	StorageKey       string         `gorm:"type:text" json:"-"`
	Analysis         `gorm:"embedded"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Resume) TableName() string {
	return "resumes"
}
