package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"greenhouse/internal/config"
	"greenhouse/internal/feature"
	"greenhouse/internal/ingest"
	"greenhouse/internal/models"
)

type stubRepo struct {
	run      *models.PipelineRun
	findings []models.ValidationFinding
	rows     []models.EnrichedReading
}

func (s *stubRepo) ReplaceRun(_ context.Context, run *models.PipelineRun, findings []models.ValidationFinding, rows []models.EnrichedReading) error {
	s.run = run
	s.findings = findings
	s.rows = rows
	return nil
}

func (s *stubRepo) LatestRun(context.Context) (*models.PipelineRun, error) { return s.run, nil }
func (s *stubRepo) ListFindings(context.Context) ([]models.ValidationFinding, error) {
	return s.findings, nil
}
func (s *stubRepo) LoadEnriched(context.Context) ([]models.EnrichedReading, error) {
	return s.rows, nil
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "readings.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func testConfig(source string) config.Config {
	return config.Config{
		Dataset: config.DatasetConfig{SourcePath: source},
		Features: config.FeaturesConfig{
			BatteryBins:       config.BatteryBinsConfig{Low: 25, Medium: 50, High: 90},
			ChangeBins:        config.ChangeBinsConfig{Small: 1, Medium: 5},
			StationaryMetrics: []string{"current", "sensor_battery_level", "sensor_signal_strength"},
			OutlierPercentile: 0.99,
			TimeBinHours:      2,
		},
	}
}

const sampleCSV = `ts_utc,dt,v,scaled_v,dv,dts,ref_d,ref_unit
2024-03-01T00:00:00Z,current,1.0,10,,,dev-1,mA
2024-03-01T00:01:00Z,current,1.5,15,0.5,60000,dev-1,mA
2024-03-01T00:02:00Z,current,1.2,12,-0.3,60000,dev-1,mA
2024-03-01T00:00:00Z,sensor_signal_strength,60,60,,,dev-1,%
2024-03-01T00:01:00Z,sensor_signal_strength,62,62,2,60000,dev-1,%
2024-03-01T00:00:30Z,sensor_battery_level,0.95,0.95,,,dev-2,ratio
2024-03-01T00:01:30Z,sensor_battery_level,0.94,0.94,-0.01,60000,dev-2,ratio
`

func TestRunnerEndToEnd(t *testing.T) {
	repo := &stubRepo{}
	runner := &Runner{
		Config: testConfig(writeCSV(t, sampleCSV)),
		Logger: zap.NewNop(),
		Repo:   repo,
	}

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Rows != 7 {
		t.Fatalf("rows = %d, want 7", result.Rows)
	}
	if repo.run == nil || repo.run.RunID != result.RunID {
		t.Fatalf("run not persisted or run_id mismatch: %+v", repo.run)
	}
	if repo.run.RowCount != 7 {
		t.Fatalf("persisted row count = %d, want 7", repo.run.RowCount)
	}
	if len(repo.rows) != 7 {
		t.Fatalf("persisted rows = %d, want 7", len(repo.rows))
	}
	if len(repo.run.Thresholds) == 0 {
		t.Fatalf("thresholds missing from run row")
	}

	// Battery rows arrived as ratios; pass 2 must see them as percent.
	for _, r := range repo.rows {
		if r.MetricType == string(models.MetricBatteryLevel) {
			if r.BatteryBin == nil || *r.BatteryBin != models.BatteryBinFull {
				t.Fatalf("battery bin = %v, want full", r.BatteryBin)
			}
		}
	}

	// Nulls on the three first-per-device rows surface as findings.
	if len(repo.findings) == 0 {
		t.Fatalf("expected null findings for first readings")
	}
}

func TestRunnerSchemaErrorAborts(t *testing.T) {
	repo := &stubRepo{}
	runner := &Runner{
		Config: testConfig(writeCSV(t, "ts_utc,dt,v,scaled_v,dv,ref_d,ref_unit\n")),
		Logger: zap.NewNop(),
		Repo:   repo,
	}

	_, err := runner.Run(context.Background())
	var schemaErr *ingest.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("want SchemaError, got %v", err)
	}
	if repo.run != nil {
		t.Fatalf("nothing should be persisted after a schema failure")
	}
}

func TestRunnerEngineErrorAborts(t *testing.T) {
	// No signal rows: pass 1 cannot freeze the tertile edges.
	csv := `ts_utc,dt,v,scaled_v,dv,dts,ref_d,ref_unit
2024-03-01T00:00:00Z,current,1.0,10,,,dev-1,mA
2024-03-01T00:01:00Z,current,1.5,15,0.5,60000,dev-1,mA
`
	repo := &stubRepo{}
	runner := &Runner{
		Config: testConfig(writeCSV(t, csv)),
		Logger: zap.NewNop(),
		Repo:   repo,
	}

	_, err := runner.Run(context.Background())
	var engineErr *feature.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("want EngineError, got %v", err)
	}
	if repo.run != nil {
		t.Fatalf("nothing should be persisted after an aggregate failure")
	}
}
