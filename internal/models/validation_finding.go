package models

import "gorm.io/datatypes"

// Finding kinds reported by the quality validator.
const (
	FindingNull      = "null"
	FindingDuplicate = "duplicate"
	FindingRange     = "range"
)

// ValidationFinding is one non-fatal data quality observation. Findings are
// report rows for human review; the pipeline never repairs or drops the
// offending readings.
type ValidationFinding struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind   string `gorm:"type:varchar(20);not null;index" json:"kind"`
	Column string `gorm:"type:varchar(50);not null" json:"column"`
	Count  int    `gorm:"not null" json:"count"`

	Detail datatypes.JSON `json:"detail,omitempty"`
}

func (ValidationFinding) TableName() string {
	return "validation_findings"
}
