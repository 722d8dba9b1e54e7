package models

import "time"

// MetricType is the kind of quantity a reading represents.
type MetricType string

const (
	MetricCurrent        MetricType = "current"
	MetricFault          MetricType = "fault"
	MetricBatteryLevel   MetricType = "sensor_battery_level"
	MetricSignalStrength MetricType = "sensor_signal_strength"
)

// AllMetricTypes lists the valid metric types in display order.
var AllMetricTypes = []MetricType{
	MetricCurrent,
	MetricFault,
	MetricBatteryLevel,
	MetricSignalStrength,
}

func (m MetricType) Valid() bool {
	switch m {
	case MetricCurrent, MetricFault, MetricBatteryLevel, MetricSignalStrength:
		return true
	}
	return false
}

// Reading is one normalized sensor reading. DeltaValue and DeltaTsMs are nil
// for the first reading of a device/metric stream (no predecessor to diff
// against).
type Reading struct {
	Timestamp   time.Time
	DeviceID    string
	MetricType  MetricType
	Value       float64
	ScaledValue float64
	DeltaValue  *float64
	DeltaTsMs   *float64
	Unit        string
}
