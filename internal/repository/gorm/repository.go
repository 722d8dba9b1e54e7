package gormrepository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"greenhouse/internal/models"
	"greenhouse/internal/repository"
)

type Repo struct {
	db        *gorm.DB
	batchSize int
}

var _ repository.Repository = (*Repo)(nil)

func New(db *gorm.DB, batchSize int) *Repo {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Repo{db: db, batchSize: batchSize}
}

func (r *Repo) ReplaceRun(ctx context.Context, run *models.PipelineRun, findings []models.ValidationFinding, rows []models.EnrichedReading) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.EnrichedReading{},
			&models.ValidationFinding{},
			&models.PipelineRun{},
		} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(run).Error; err != nil {
			return err
		}
		if len(findings) > 0 {
			if err := tx.CreateInBatches(findings, r.batchSize).Error; err != nil {
				return err
			}
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, r.batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) LatestRun(ctx context.Context) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := r.db.WithContext(ctx).Order("finished_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repo) ListFindings(ctx context.Context) ([]models.ValidationFinding, error) {
	var findings []models.ValidationFinding
	if err := r.db.WithContext(ctx).Order("id").Find(&findings).Error; err != nil {
		return nil, err
	}
	return findings, nil
}

func (r *Repo) LoadEnriched(ctx context.Context) ([]models.EnrichedReading, error) {
	var rows []models.EnrichedReading
	if err := r.db.WithContext(ctx).Order("timestamp_utc, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
