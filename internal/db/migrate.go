package db

import (
	"greenhouse/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.PipelineRun{},
		&models.ValidationFinding{},
		&models.EnrichedReading{},
	)
}
