package models

import (
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type ProcessingStatus string

const (
	StatusQueued     ProcessingStatus = "queued"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
	FormatDOC  DocumentFormat = "doc"
	FormatODT  DocumentFormat = "odt"
	FormatRTF  DocumentFormat = "rtf"
	FormatText DocumentFormat = "txt"
)

// FormatFromFilename maps a file extension to a DocumentFormat. Unknown
// extensions are treated as plain text.
func FormatFromFilename(name string) DocumentFormat {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "pdf":
		return FormatPDF
	case "docx":
		return FormatDOCX
	case "doc":
		return FormatDOC
	case "odt":
		return FormatODT
	case "rtf":
		return FormatRTF
	default:
		return FormatText
	}
}

// Analysis holds everything the processing pipeline derives from a document.
// It is embedded in Resume and Job and is always rewritten as a whole.
type Analysis struct {
	ExtractedText   string                      `gorm:"type:text" json:"extracted_text,omitempty"`
	Skills          datatypes.JSONSlice[string] `json:"skills"`
	Embedding       []byte                      `gorm:"type:bytea" json:"-"`
	EmbeddingModel  string                      `gorm:"type:text" json:"embedding_model,omitempty"`
	Status          ProcessingStatus            `gorm:"not null;default:'queued';index" json:"status"`
	AnalysisVersion int                         `gorm:"not null;default:0" json:"analysis_version"`
	ErrorMessage    *string                     `gorm:"type:text" json:"error_message,omitempty"`
	ProcessedAt     *time.Time                  `json:"processed_at,omitempty"`
}

func (a Analysis) HasEmbedding() bool {
	return len(a.Embedding) > 0 && a.EmbeddingModel != ""
}
