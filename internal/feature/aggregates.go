package feature

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"greenhouse/internal/config"
	"greenhouse/internal/models"
)

// EngineError is fatal: a pass-1 aggregate could not be computed, so the
// per-row derivations of pass 2 are undefined. Thresholds are never
// silently defaulted to zero.
type EngineError struct {
	Aggregate string
	Reason    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("feature engine: %s: %s", e.Aggregate, e.Reason)
}

// Aggregates is the frozen set of dataset-wide thresholds computed in pass 1.
// Every pass-2 rule reads from here; Enrich cannot run without a value of
// this type, which enforces the pass ordering.
type Aggregates struct {
	T0                time.Time  `json:"t0"`
	SignalEdges       [2]float64 `json:"signal_edges"`
	DeltaValueP99     float64    `json:"delta_value_p99"`
	DeltaPerSecondP99 float64    `json:"delta_per_second_p99"`
}

// ComputeAggregates runs pass 1 over the full normalized table:
// the dataset start time, the signal-strength tertile edges, and the high
// percentiles backing the two outlier flags.
//
// Rows with a nil delta (first reading per device) are excluded from the
// percentile samples, and rows with a zero or nil step duration are
// excluded from the rate sample: a zero-duration step has no defined rate.
func ComputeAggregates(readings []models.Reading, cfg config.FeaturesConfig) (Aggregates, error) {
	if len(readings) == 0 {
		return Aggregates{}, &EngineError{Aggregate: "t0", Reason: "empty table"}
	}
	p := cfg.OutlierPercentile
	if p <= 0 || p >= 1 {
		return Aggregates{}, &EngineError{
			Aggregate: "outlier_percentile",
			Reason:    fmt.Sprintf("%v outside (0,1)", p),
		}
	}

	agg := Aggregates{T0: readings[0].Timestamp}
	stationary := stationarySet(cfg)

	var signalValues, absDeltas, rates []float64
	for _, r := range readings {
		if r.Timestamp.Before(agg.T0) {
			agg.T0 = r.Timestamp
		}
		if r.MetricType == models.MetricSignalStrength {
			signalValues = append(signalValues, r.ScaledValue)
		}
		if r.DeltaValue == nil {
			continue
		}
		absDeltas = append(absDeltas, math.Abs(*r.DeltaValue))
		if stationary[r.MetricType] && r.DeltaTsMs != nil && *r.DeltaTsMs > 0 {
			rates = append(rates, ratePerSecond(*r.DeltaValue, *r.DeltaTsMs))
		}
	}

	if len(signalValues) == 0 {
		return Aggregates{}, &EngineError{
			Aggregate: "signal_edges",
			Reason:    "no sensor_signal_strength rows",
		}
	}
	if len(absDeltas) == 0 {
		return Aggregates{}, &EngineError{
			Aggregate: "delta_value_p99",
			Reason:    "no rows with a non-null delta_value",
		}
	}
	if len(rates) == 0 {
		return Aggregates{}, &EngineError{
			Aggregate: "delta_per_second_p99",
			Reason:    "no stationary-metric rows with a usable step duration",
		}
	}

	sort.Float64s(signalValues)
	sort.Float64s(absDeltas)
	sort.Float64s(rates)

	agg.SignalEdges[0] = stat.Quantile(1.0/3.0, stat.Empirical, signalValues, nil)
	agg.SignalEdges[1] = stat.Quantile(2.0/3.0, stat.Empirical, signalValues, nil)
	agg.DeltaValueP99 = stat.Quantile(p, stat.Empirical, absDeltas, nil)
	agg.DeltaPerSecondP99 = stat.Quantile(p, stat.Empirical, rates, nil)

	return agg, nil
}

func stationarySet(cfg config.FeaturesConfig) map[models.MetricType]bool {
	set := make(map[models.MetricType]bool, len(cfg.StationaryMetrics))
	for _, m := range cfg.StationaryMetrics {
		set[models.MetricType(m)] = true
	}
	return set
}

// ratePerSecond is |delta| over the step duration in seconds. Callers must
// ensure deltaTsMs > 0.
func ratePerSecond(delta, deltaTsMs float64) float64 {
	return math.Abs(delta) / (deltaTsMs / 1000.0)
}
