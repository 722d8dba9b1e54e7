package models

import (
	"time"

	"gorm.io/datatypes"
)

// PipelineRun records one batch run of the enrichment pipeline, including
// the frozen pass-1 thresholds the derived columns were computed against.
// The artifact holds at most one run: each run replaces the previous one.
type PipelineRun struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string `gorm:"type:varchar(36);not null;uniqueIndex" json:"run_id"`
	SourcePath string `gorm:"type:varchar(255);not null" json:"source_path"`

	StartedAt  time.Time `gorm:"not null" json:"started_at"`
	FinishedAt time.Time `gorm:"not null" json:"finished_at"`

	RowCount     int `gorm:"not null" json:"row_count"`
	OutlierCount int `gorm:"not null" json:"outlier_count"`
	FindingCount int `gorm:"not null" json:"finding_count"`

	Thresholds datatypes.JSON `json:"thresholds"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
