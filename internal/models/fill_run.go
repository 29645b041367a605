package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RunKindFill   = "fill"
	RunKindBundle = "bundle"

	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// FillRun records one fill or bundle request.
type FillRun struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Kind        string         `gorm:"type:varchar(16);not null;index" json:"kind"`
	TemplateID  string         `gorm:"type:varchar(191);index" json:"template_id,omitempty"`
	BundleID    string         `gorm:"type:varchar(191);index" json:"bundle_id,omitempty"`
	Status      string         `gorm:"type:varchar(16);not null" json:"status"`
	Files       int            `json:"files"`
	Failures    int            `json:"failures"`
	Error       string         `gorm:"type:text" json:"error,omitempty"`
	ArchivePath string         `gorm:"type:text" json:"archive_path,omitempty"`
	DurationMS  int64          `gorm:"not null" json:"duration_ms"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (FillRun) TableName() string {
	return "fill_runs"
}
