package models

import "time"

// Battery level bins (fixed thresholds on scaled_value).
const (
	BatteryBinLow    = "low"
	BatteryBinMedium = "medium"
	BatteryBinHigh   = "high"
	BatteryBinFull   = "full"
)

// Signal strength bins (dataset tertiles of scaled_value).
const (
	SignalBinWeak   = "weak"
	SignalBinMedium = "medium"
	SignalBinStrong = "strong"
)

// Change magnitude bins (fixed thresholds on |delta_value|).
const (
	ChangeBinSmall  = "small"
	ChangeBinMedium = "medium"
	ChangeBinLarge  = "large"
)

// Outlier classification, combining the two boolean flags.
const (
	OutlierNone           = "none"
	OutlierDeltaValue     = "delta_value"
	OutlierDeltaPerSecond = "delta_per_second"
	OutlierBoth           = "both"
)

// EnrichedReading is the 1:1 derivation of a Reading persisted by the
// pipeline. Bin columns that only apply to a subset of metric types
// (battery, signal) or rows (change) are nullable.
type EnrichedReading struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	TimestampUTC time.Time `gorm:"not null;index" json:"timestamp_utc"`
	DeviceID     string    `gorm:"type:varchar(100);not null;index" json:"device_id"`
	MetricType   string    `gorm:"type:varchar(50);not null;index" json:"metric_type"`
	Value        float64   `gorm:"not null" json:"value"`
	ScaledValue  float64   `gorm:"not null" json:"scaled_value"`
	DeltaValue   *float64  `json:"delta_value"`
	DeltaTsMs    *float64  `json:"delta_ts_ms"`
	Unit         string    `gorm:"type:varchar(20)" json:"unit"`

	ElapsedHours float64 `gorm:"not null" json:"elapsed_hours"`
	TimeBinStart int     `gorm:"not null;index" json:"time_bin_start"`
	TimeBin2h    string  `gorm:"type:varchar(20);not null" json:"time_bin_2h"`

	BatteryBin *string `gorm:"type:varchar(10)" json:"battery_bin"`
	SignalBin  *string `gorm:"type:varchar(10)" json:"signal_bin"`
	ChangeBin  *string `gorm:"type:varchar(10)" json:"change_bin"`

	DeltaValueOutlier     bool   `gorm:"not null" json:"delta_value_outlier"`
	DeltaPerSecondOutlier bool   `gorm:"not null" json:"delta_per_second_outlier"`
	OutlierType           string `gorm:"type:varchar(20);not null;index" json:"outlier_type"`
}

func (EnrichedReading) TableName() string {
	return "enriched_readings"
}

// IsOutlier reports whether either outlier flag is set.
func (r EnrichedReading) IsOutlier() bool {
	return r.OutlierType != OutlierNone
}
