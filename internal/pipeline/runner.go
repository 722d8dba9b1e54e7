package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"greenhouse/internal/config"
	"greenhouse/internal/feature"
	"greenhouse/internal/ingest"
	"greenhouse/internal/models"
	"greenhouse/internal/quality"
	"greenhouse/internal/repository"
)

// Runner executes one batch run: load raw CSV, normalize, validate, enrich
// (two passes), persist. All state flows through explicit values; there is
// no package-level table or cached threshold.
type Runner struct {
	Config config.Config
	Logger *zap.Logger
	Repo   repository.Repository
}

// Result summarizes a completed run.
type Result struct {
	RunID      string
	Rows       int
	Outliers   int
	Report     quality.Report
	Aggregates feature.Aggregates
}

func (r *Runner) Run(ctx context.Context) (*Result, error) {
	started := time.Now().UTC()
	runID := uuid.NewString()
	log := r.Logger.With(zap.String("run_id", runID))

	source := r.Config.Dataset.SourcePath
	log.Info("loading raw dataset", zap.String("path", source))
	raw, err := ingest.LoadCSV(source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	readings, err := ingest.Normalize(raw)
	if err != nil {
		return nil, err
	}
	log.Info("normalized", zap.Int("rows", len(readings)))

	report := quality.Validate(readings)
	for _, f := range report.Findings {
		log.Warn("validation finding",
			zap.String("kind", f.Kind),
			zap.String("column", f.Column),
			zap.Int("count", f.Count))
	}

	agg, err := feature.ComputeAggregates(readings, r.Config.Features)
	if err != nil {
		return nil, err
	}
	log.Info("pass-1 aggregates frozen",
		zap.Time("t0", agg.T0),
		zap.Float64s("signal_edges", agg.SignalEdges[:]),
		zap.Float64("delta_value_p99", agg.DeltaValueP99),
		zap.Float64("delta_per_second_p99", agg.DeltaPerSecondP99))

	enriched := feature.Enrich(readings, agg, r.Config.Features)

	outliers := 0
	for _, e := range enriched {
		if e.IsOutlier() {
			outliers++
		}
	}

	run, findings, err := buildArtifactRows(runID, source, started, agg, report, enriched, outliers)
	if err != nil {
		return nil, err
	}
	if err := r.Repo.ReplaceRun(ctx, run, findings, enriched); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}

	log.Info("run persisted",
		zap.Int("rows", len(enriched)),
		zap.Int("outliers", outliers),
		zap.Int("findings", len(report.Findings)),
		zap.Duration("elapsed", time.Since(started)))

	return &Result{
		RunID:      runID,
		Rows:       len(enriched),
		Outliers:   outliers,
		Report:     report,
		Aggregates: agg,
	}, nil
}

func buildArtifactRows(runID, source string, started time.Time, agg feature.Aggregates, report quality.Report, enriched []models.EnrichedReading, outliers int) (*models.PipelineRun, []models.ValidationFinding, error) {
	thresholds, err := json.Marshal(agg)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal thresholds: %w", err)
	}

	run := &models.PipelineRun{
		RunID:        runID,
		SourcePath:   source,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
		RowCount:     len(enriched),
		OutlierCount: outliers,
		FindingCount: len(report.Findings),
		Thresholds:   datatypes.JSON(thresholds),
	}

	findings := make([]models.ValidationFinding, 0, len(report.Findings))
	for _, f := range report.Findings {
		var detail datatypes.JSON
		if f.Detail != nil {
			raw, err := json.Marshal(f.Detail)
			if err != nil {
				return nil, nil, fmt.Errorf("marshal finding detail: %w", err)
			}
			detail = datatypes.JSON(raw)
		}
		findings = append(findings, models.ValidationFinding{
			Kind:   f.Kind,
			Column: f.Column,
			Count:  f.Count,
			Detail: detail,
		})
	}

	return run, findings, nil
}
