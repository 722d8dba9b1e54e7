package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"greenhouse/internal/models"
)

// Source column names expected in the raw export.
const (
	colTimestamp  = "ts_utc"
	colMetricType = "dt"
	colValue      = "v"
	colScaled     = "scaled_v"
	colDelta      = "dv"
	colDeltaTs    = "dts"
	colDevice     = "ref_d"
	colUnit       = "ref_unit"
)

var requiredColumns = []string{
	colTimestamp, colMetricType, colValue, colScaled,
	colDelta, colDeltaTs, colDevice, colUnit,
}

// SchemaError is fatal: the raw table is missing a required column or holds
// a value that cannot be retyped into the canonical schema.
type SchemaError struct {
	Column string
	Row    int // 1-based data row; 0 when the header itself is at fault
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema: column %q row %d: %s", e.Column, e.Row, e.Reason)
	}
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// RawTable is the unmodified raw export: header plus string records.
// Normalization copies out of it and never writes back, so the raw rows
// remain available for audit.
type RawTable struct {
	Header  []string
	Records [][]string
}

func LoadCSV(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return &RawTable{Header: header, Records: records}, nil
}

// Units that carry battery/signal levels as a 0..1 ratio; normalization
// rescales them to percent.
var ratioUnits = map[string]bool{
	"ratio":    true,
	"fraction": true,
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Normalize renames and retypes the raw table into canonical readings.
// Battery and signal levels recorded as ratios are rescaled to percent.
// Returns a SchemaError if a required column is absent or a value cannot
// be parsed.
func Normalize(raw *RawTable) ([]models.Reading, error) {
	idx := make(map[string]int, len(raw.Header))
	for i, name := range raw.Header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &SchemaError{Column: col, Reason: "missing from header"}
		}
	}

	readings := make([]models.Reading, 0, len(raw.Records))
	for i, rec := range raw.Records {
		row := i + 1

		field := func(col string) string {
			j := idx[col]
			if j >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[j])
		}

		ts, err := parseTimestamp(field(colTimestamp))
		if err != nil {
			return nil, &SchemaError{Column: colTimestamp, Row: row, Reason: err.Error()}
		}

		metric := models.MetricType(field(colMetricType))
		if !metric.Valid() {
			return nil, &SchemaError{Column: colMetricType, Row: row, Reason: fmt.Sprintf("unknown metric type %q", metric)}
		}

		value, err := parseFloat(field(colValue))
		if err != nil {
			return nil, &SchemaError{Column: colValue, Row: row, Reason: err.Error()}
		}
		scaled, err := parseFloat(field(colScaled))
		if err != nil {
			return nil, &SchemaError{Column: colScaled, Row: row, Reason: err.Error()}
		}
		delta, err := parseOptionalFloat(field(colDelta))
		if err != nil {
			return nil, &SchemaError{Column: colDelta, Row: row, Reason: err.Error()}
		}
		deltaTs, err := parseOptionalFloat(field(colDeltaTs))
		if err != nil {
			return nil, &SchemaError{Column: colDeltaTs, Row: row, Reason: err.Error()}
		}

		reading := models.Reading{
			Timestamp:   ts.UTC(),
			DeviceID:    field(colDevice),
			MetricType:  metric,
			Value:       value,
			ScaledValue: scaled,
			DeltaValue:  delta,
			DeltaTsMs:   deltaTs,
			Unit:        field(colUnit),
		}

		if metric == models.MetricBatteryLevel || metric == models.MetricSignalStrength {
			if ratioUnits[strings.ToLower(reading.Unit)] {
				reading.Value *= 100
				reading.ScaledValue *= 100
				if reading.DeltaValue != nil {
					d := *reading.DeltaValue * 100
					reading.DeltaValue = &d
				}
				reading.Unit = "%"
			} else if strings.EqualFold(reading.Unit, "percent") {
				reading.Unit = "%"
			}
		}

		readings = append(readings, reading)
	}

	return readings, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable float %q", s)
	}
	return v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("unparsable float %q", s)
	}
	return &v, nil
}
