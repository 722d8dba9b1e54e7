package viewer

import (
	"testing"
	"time"

	"greenhouse/internal/models"
)

func mkRow(offsetMin int, device, metric string, scaled float64, outlierType string) models.EnrichedReading {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return models.EnrichedReading{
		TimestampUTC: base.Add(time.Duration(offsetMin) * time.Minute),
		DeviceID:     device,
		MetricType:   metric,
		Value:        scaled,
		ScaledValue:  scaled,
		OutlierType:  outlierType,
	}
}

func testDataset() *Dataset {
	rows := []models.EnrichedReading{
		mkRow(0, "dev-1", "current", 10, models.OutlierNone),
		mkRow(10, "dev-1", "current", 20, models.OutlierDeltaValue),
		mkRow(20, "dev-2", "current", 30, models.OutlierNone),
		mkRow(30, "dev-2", "sensor_signal_strength", 55, models.OutlierNone),
		mkRow(40, "dev-3", "sensor_battery_level", 95, models.OutlierBoth),
	}
	return NewDataset(rows, &models.PipelineRun{RunID: "test-run"}, nil)
}

func tp(t time.Time) *time.Time { return &t }

func TestSelectConjunction(t *testing.T) {
	d := testDataset()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 5},
		{"by metric", Filter{Metrics: []string{"current"}}, 3},
		{"by device", Filter{Devices: []string{"dev-2"}}, 2},
		{"metric and device", Filter{Metrics: []string{"current"}, Devices: []string{"dev-2"}}, 1},
		{"time window", Filter{From: tp(base.Add(10 * time.Minute)), To: tp(base.Add(30 * time.Minute))}, 3},
		{"all predicates", Filter{
			Metrics: []string{"current", "sensor_signal_strength"},
			Devices: []string{"dev-2"},
			From:    tp(base),
			To:      tp(base.Add(25 * time.Minute)),
		}, 1},
		{"nothing matches", Filter{Devices: []string{"dev-9"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(d.Select(tt.filter)); got != tt.want {
				t.Fatalf("selected %d rows, want %d", got, tt.want)
			}
		})
	}
}

func TestSelectBoundsInclusive(t *testing.T) {
	d := testDataset()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := d.Select(Filter{From: tp(base), To: tp(base)})
	if len(rows) != 1 {
		t.Fatalf("inclusive bounds should keep the boundary row, got %d", len(rows))
	}
}

func TestSummarize(t *testing.T) {
	d := testDataset()

	s := Summarize(d.Select(Filter{}))
	if s.Empty {
		t.Fatalf("summary unexpectedly empty")
	}
	if s.Readings != 5 || s.Devices != 3 {
		t.Fatalf("summary = %+v", s)
	}
	// 2 of 5 rows carry an outlier type other than none.
	if s.OutlierRate != 0.4 {
		t.Fatalf("outlier rate = %v, want 0.4", s.OutlierRate)
	}
}

func TestSummarizeEmptySelection(t *testing.T) {
	d := testDataset()

	s := Summarize(d.Select(Filter{Devices: []string{"absent"}}))
	if !s.Empty {
		t.Fatalf("expected explicit empty state, got %+v", s)
	}
	if s.Readings != 0 || s.OutlierRate != 0 {
		t.Fatalf("empty summary should be zeroed: %+v", s)
	}
}

func TestTimeSeriesSortedAndScoped(t *testing.T) {
	d := testDataset()

	points := TimeSeries(d.Select(Filter{}), "current")
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].TS.Before(points[i-1].TS) {
			t.Fatalf("time series out of order at %d", i)
		}
	}
}

func TestDistribution(t *testing.T) {
	d := testDataset()

	bins := Distribution(d.Select(Filter{}), 5)
	if len(bins) != 5 {
		t.Fatalf("bins = %d, want 5", len(bins))
	}

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 5 {
		t.Fatalf("histogram total = %d, want 5 (no rows dropped)", total)
	}

	// Max value lands in the last bin, not out of range.
	if bins[len(bins)-1].Count == 0 {
		t.Fatalf("max value missing from last bin")
	}
}

func TestDistributionSingleValue(t *testing.T) {
	rows := []models.EnrichedReading{
		mkRow(0, "d", "current", 42, models.OutlierNone),
		mkRow(1, "d", "current", 42, models.OutlierNone),
	}
	bins := Distribution(rows, 30)
	if len(bins) != 1 || bins[0].Count != 2 {
		t.Fatalf("single-value distribution = %+v", bins)
	}
}

func TestDistributionEmpty(t *testing.T) {
	if bins := Distribution(nil, 30); bins != nil {
		t.Fatalf("empty distribution = %+v, want nil", bins)
	}
}

func TestOutlierByMetric(t *testing.T) {
	d := testDataset()

	rows := OutlierByMetric(d.Select(Filter{}))
	if len(rows) != 3 {
		t.Fatalf("metric groups = %d, want 3", len(rows))
	}

	// Sorted by metric name.
	if rows[0].MetricType != "current" {
		t.Fatalf("first group = %q, want current", rows[0].MetricType)
	}

	for _, row := range rows {
		switch row.MetricType {
		case "current":
			if row.Readings != 3 || row.Outliers != 1 {
				t.Fatalf("current group = %+v", row)
			}
		case "sensor_battery_level":
			if row.Readings != 1 || row.Outliers != 1 || row.OutlierRate != 1 {
				t.Fatalf("battery group = %+v", row)
			}
		case "sensor_signal_strength":
			if row.Outliers != 0 || row.OutlierRate != 0 {
				t.Fatalf("signal group = %+v", row)
			}
		}
	}
}

func TestMeta(t *testing.T) {
	d := testDataset()

	meta := d.Meta()
	if meta.Rows != 5 {
		t.Fatalf("meta rows = %d", meta.Rows)
	}
	if len(meta.Metrics) != 3 || len(meta.Devices) != 3 {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.MinTS == nil || meta.MaxTS == nil {
		t.Fatalf("meta timestamps missing")
	}
	if !meta.MinTS.Before(*meta.MaxTS) {
		t.Fatalf("min %v not before max %v", meta.MinTS, meta.MaxTS)
	}
}
