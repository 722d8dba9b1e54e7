package repository

import (
	"context"

	"greenhouse/internal/models"
)

// Repository is the persistence surface shared by the pipeline (writer)
// and the viewer (reader).
type Repository interface {
	// ReplaceRun atomically replaces the artifact contents with the given
	// run, its validation findings and the enriched table. Last write wins;
	// no versioning.
	ReplaceRun(ctx context.Context, run *models.PipelineRun, findings []models.ValidationFinding, rows []models.EnrichedReading) error

	LatestRun(ctx context.Context) (*models.PipelineRun, error)
	ListFindings(ctx context.Context) ([]models.ValidationFinding, error)
	LoadEnriched(ctx context.Context) ([]models.EnrichedReading, error)
}
