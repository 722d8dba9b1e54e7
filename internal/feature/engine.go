package feature

import (
	"fmt"
	"math"

	"greenhouse/internal/config"
	"greenhouse/internal/models"
)

// Enrich runs pass 2: derives every per-row feature from a reading, the
// frozen pass-1 aggregates and the fixed domain thresholds. The derivation
// is pure and deterministic; rerunning it on the same inputs yields
// identical rows.
func Enrich(readings []models.Reading, agg Aggregates, cfg config.FeaturesConfig) []models.EnrichedReading {
	stationary := stationarySet(cfg)
	binHours := cfg.TimeBinHours
	if binHours <= 0 {
		binHours = 2
	}

	out := make([]models.EnrichedReading, 0, len(readings))
	for _, r := range readings {
		out = append(out, enrichOne(r, agg, cfg, stationary, binHours))
	}
	return out
}

func enrichOne(r models.Reading, agg Aggregates, cfg config.FeaturesConfig, stationary map[models.MetricType]bool, binHours float64) models.EnrichedReading {
	elapsed := r.Timestamp.Sub(agg.T0).Seconds() / 3600.0
	binStart, binLabel := timeBin(elapsed, binHours)

	e := models.EnrichedReading{
		TimestampUTC: r.Timestamp,
		DeviceID:     r.DeviceID,
		MetricType:   string(r.MetricType),
		Value:        r.Value,
		ScaledValue:  r.ScaledValue,
		DeltaValue:   r.DeltaValue,
		DeltaTsMs:    r.DeltaTsMs,
		Unit:         r.Unit,
		ElapsedHours: elapsed,
		TimeBinStart: binStart,
		TimeBin2h:    binLabel,
	}

	switch r.MetricType {
	case models.MetricBatteryLevel:
		b := batteryBin(r.ScaledValue, cfg.BatteryBins)
		e.BatteryBin = &b
	case models.MetricSignalStrength:
		s := signalBin(r.ScaledValue, agg.SignalEdges)
		e.SignalBin = &s
	}

	// First reading per device has no delta; its flags stay false and its
	// change bin stays null rather than erroring.
	if r.DeltaValue != nil {
		c := changeBin(math.Abs(*r.DeltaValue), cfg.ChangeBins)
		e.ChangeBin = &c

		e.DeltaValueOutlier = math.Abs(*r.DeltaValue) > agg.DeltaValueP99
		if stationary[r.MetricType] && r.DeltaTsMs != nil && *r.DeltaTsMs > 0 {
			e.DeltaPerSecondOutlier = ratePerSecond(*r.DeltaValue, *r.DeltaTsMs) > agg.DeltaPerSecondP99
		}
	}

	e.OutlierType = classifyOutlier(e.DeltaValueOutlier, e.DeltaPerSecondOutlier)
	return e
}

// timeBin places elapsed hours into a fixed-width, left-closed right-open
// interval with no upper cap: hour 2.0 lands in [2,4), not [0,2).
func timeBin(elapsedHours, widthHours float64) (int, string) {
	w := int(widthHours)
	start := int(math.Floor(elapsedHours/widthHours)) * w
	return start, fmt.Sprintf("[%d,%d)", start, start+w)
}

func batteryBin(scaled float64, bins config.BatteryBinsConfig) string {
	switch {
	case scaled < bins.Low:
		return models.BatteryBinLow
	case scaled < bins.Medium:
		return models.BatteryBinMedium
	case scaled < bins.High:
		return models.BatteryBinHigh
	default:
		return models.BatteryBinFull
	}
}

func signalBin(scaled float64, edges [2]float64) string {
	switch {
	case scaled < edges[0]:
		return models.SignalBinWeak
	case scaled < edges[1]:
		return models.SignalBinMedium
	default:
		return models.SignalBinStrong
	}
}

func changeBin(absDelta float64, bins config.ChangeBinsConfig) string {
	switch {
	case absDelta < bins.Small:
		return models.ChangeBinSmall
	case absDelta < bins.Medium:
		return models.ChangeBinMedium
	default:
		return models.ChangeBinLarge
	}
}

func classifyOutlier(deltaValue, deltaPerSecond bool) string {
	switch {
	case deltaValue && deltaPerSecond:
		return models.OutlierBoth
	case deltaValue:
		return models.OutlierDeltaValue
	case deltaPerSecond:
		return models.OutlierDeltaPerSecond
	default:
		return models.OutlierNone
	}
}
