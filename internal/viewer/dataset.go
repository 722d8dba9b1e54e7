package viewer

import (
	"sort"
	"time"

	"greenhouse/internal/models"
)

// Dataset is the immutable in-memory snapshot of the persisted artifact,
// loaded once at viewer startup. All filtering and chart derivation happens
// against this snapshot; nothing is ever written back.
type Dataset struct {
	rows     []models.EnrichedReading
	run      *models.PipelineRun
	findings []models.ValidationFinding
}

func NewDataset(rows []models.EnrichedReading, run *models.PipelineRun, findings []models.ValidationFinding) *Dataset {
	return &Dataset{rows: rows, run: run, findings: findings}
}

func (d *Dataset) Run() *models.PipelineRun { return d.run }

func (d *Dataset) Findings() []models.ValidationFinding { return d.findings }

func (d *Dataset) Rows() int { return len(d.rows) }

// Filter selects a rectangular subset by predicate conjunction. Empty
// metric/device selectors mean "all"; time bounds are inclusive on both
// ends and optional.
type Filter struct {
	Metrics []string
	Devices []string
	From    *time.Time
	To      *time.Time
}

func (f Filter) matches(r models.EnrichedReading) bool {
	if len(f.Metrics) > 0 && !contains(f.Metrics, r.MetricType) {
		return false
	}
	if len(f.Devices) > 0 && !contains(f.Devices, r.DeviceID) {
		return false
	}
	if f.From != nil && r.TimestampUTC.Before(*f.From) {
		return false
	}
	if f.To != nil && r.TimestampUTC.After(*f.To) {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Select returns the filtered rows, preserving timestamp order. An empty
// result is a normal state, not an error.
func (d *Dataset) Select(f Filter) []models.EnrichedReading {
	var out []models.EnrichedReading
	for _, r := range d.rows {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Meta describes the full dataset for building filter controls.
type Meta struct {
	Metrics []string   `json:"metrics"`
	Devices []string   `json:"devices"`
	MinTS   *time.Time `json:"min_ts"`
	MaxTS   *time.Time `json:"max_ts"`
	Rows    int        `json:"rows"`
}

func (d *Dataset) Meta() Meta {
	meta := Meta{Rows: len(d.rows)}
	metricSet := map[string]bool{}
	deviceSet := map[string]bool{}
	for i, r := range d.rows {
		metricSet[r.MetricType] = true
		deviceSet[r.DeviceID] = true
		ts := r.TimestampUTC
		if i == 0 {
			lo, hi := ts, ts
			meta.MinTS, meta.MaxTS = &lo, &hi
			continue
		}
		if ts.Before(*meta.MinTS) {
			*meta.MinTS = ts
		}
		if ts.After(*meta.MaxTS) {
			*meta.MaxTS = ts
		}
	}
	meta.Metrics = sortedKeys(metricSet)
	meta.Devices = sortedKeys(deviceSet)
	return meta
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Summary is the dashboard header: filtered row count, distinct devices
// and the share of rows flagged by either outlier rule.
type Summary struct {
	Readings    int     `json:"readings"`
	Devices     int     `json:"devices"`
	OutlierRate float64 `json:"outlier_rate"`
	Empty       bool    `json:"empty"`
}

func Summarize(rows []models.EnrichedReading) Summary {
	if len(rows) == 0 {
		return Summary{Empty: true}
	}
	devices := map[string]bool{}
	outliers := 0
	for _, r := range rows {
		devices[r.DeviceID] = true
		if r.IsOutlier() {
			outliers++
		}
	}
	return Summary{
		Readings:    len(rows),
		Devices:     len(devices),
		OutlierRate: float64(outliers) / float64(len(rows)),
	}
}

// TimeSeriesPoint is one (timestamp, scaled_value) sample.
type TimeSeriesPoint struct {
	TS    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

// TimeSeries extracts the scaled-value series for one metric, sorted by
// timestamp.
func TimeSeries(rows []models.EnrichedReading, metric string) []TimeSeriesPoint {
	var out []TimeSeriesPoint
	for _, r := range rows {
		if r.MetricType == metric {
			out = append(out, TimeSeriesPoint{TS: r.TimestampUTC, Value: r.ScaledValue})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out
}

// HistogramBin is one fixed-width bucket over scaled_value.
type HistogramBin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Distribution builds a fixed-width histogram of scaled_value over the
// given rows. Returns nil for an empty subset.
func Distribution(rows []models.EnrichedReading, binCount int) []HistogramBin {
	if len(rows) == 0 {
		return nil
	}
	if binCount <= 0 {
		binCount = 30
	}

	lo, hi := rows[0].ScaledValue, rows[0].ScaledValue
	for _, r := range rows {
		if r.ScaledValue < lo {
			lo = r.ScaledValue
		}
		if r.ScaledValue > hi {
			hi = r.ScaledValue
		}
	}
	if lo == hi {
		return []HistogramBin{{Lo: lo, Hi: hi, Count: len(rows)}}
	}

	width := (hi - lo) / float64(binCount)
	bins := make([]HistogramBin, binCount)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	for _, r := range rows {
		i := int((r.ScaledValue - lo) / width)
		if i >= binCount {
			i = binCount - 1
		}
		bins[i].Count++
	}
	return bins
}

// MetricOutliers is the per-metric outlier breakdown.
type MetricOutliers struct {
	MetricType  string  `json:"metric_type"`
	Readings    int     `json:"n_readings"`
	Outliers    int     `json:"n_outliers"`
	OutlierRate float64 `json:"outlier_rate"`
}

// OutlierByMetric groups the rows by metric type and computes the outlier
// rate within each group, sorted by metric name.
func OutlierByMetric(rows []models.EnrichedReading) []MetricOutliers {
	byMetric := map[string]*MetricOutliers{}
	for _, r := range rows {
		m, ok := byMetric[r.MetricType]
		if !ok {
			m = &MetricOutliers{MetricType: r.MetricType}
			byMetric[r.MetricType] = m
		}
		m.Readings++
		if r.IsOutlier() {
			m.Outliers++
		}
	}

	out := make([]MetricOutliers, 0, len(byMetric))
	for _, m := range byMetric {
		if m.Readings > 0 {
			m.OutlierRate = float64(m.Outliers) / float64(m.Readings)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricType < out[j].MetricType })
	return out
}
