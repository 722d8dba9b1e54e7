package quality

import (
	"fmt"

	"greenhouse/internal/models"
)

// Finding is one data quality observation. Findings are data for human
// review, not pipeline errors: the validator never mutates or drops rows.
type Finding struct {
	Kind   string         `json:"kind"`
	Column string         `json:"column"`
	Count  int            `json:"count"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Report aggregates all findings over one normalized table.
type Report struct {
	Rows     int       `json:"rows"`
	Findings []Finding `json:"findings"`
}

// CountByKind returns the number of findings of the given kind.
func (r Report) CountByKind(kind string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Validate checks value ranges, null rates and duplicate rows against the
// canonical schema invariants. It assumes a normalized table; column
// presence and typing are already enforced at the ingest boundary.
func Validate(readings []models.Reading) Report {
	report := Report{Rows: len(readings)}

	report.add(checkNulls(readings)...)
	report.add(checkDuplicates(readings))
	report.add(checkRanges(readings)...)

	return report
}

func (r *Report) add(findings ...*Finding) {
	for _, f := range findings {
		if f != nil {
			r.Findings = append(r.Findings, *f)
		}
	}
}

func checkNulls(readings []models.Reading) []*Finding {
	var deltaNulls, deltaTsNulls int
	for _, rd := range readings {
		if rd.DeltaValue == nil {
			deltaNulls++
		}
		if rd.DeltaTsMs == nil {
			deltaTsNulls++
		}
	}

	var out []*Finding
	if deltaNulls > 0 {
		out = append(out, &Finding{Kind: models.FindingNull, Column: "delta_value", Count: deltaNulls})
	}
	if deltaTsNulls > 0 {
		out = append(out, &Finding{Kind: models.FindingNull, Column: "delta_ts_ms", Count: deltaTsNulls})
	}
	return out
}

func checkDuplicates(readings []models.Reading) *Finding {
	seen := make(map[string]bool, len(readings))
	dups := 0
	for _, rd := range readings {
		key := fmt.Sprintf("%d|%s|%s|%v|%v|%v|%v|%s",
			rd.Timestamp.UnixNano(), rd.DeviceID, rd.MetricType,
			rd.Value, rd.ScaledValue, optStr(rd.DeltaValue), optStr(rd.DeltaTsMs), rd.Unit)
		if seen[key] {
			dups++
			continue
		}
		seen[key] = true
	}
	if dups == 0 {
		return nil
	}
	return &Finding{Kind: models.FindingDuplicate, Column: "*", Count: dups}
}

func checkRanges(readings []models.Reading) []*Finding {
	var scaledOut, faultOut, currentNeg, deltaTsNeg int
	for _, rd := range readings {
		if rd.ScaledValue < 0 || rd.ScaledValue > 100 {
			scaledOut++
		}
		if rd.MetricType == models.MetricFault && rd.Value != 0 && rd.Value != 1 {
			faultOut++
		}
		if rd.MetricType == models.MetricCurrent && rd.Value < 0 {
			currentNeg++
		}
		if rd.DeltaTsMs != nil && *rd.DeltaTsMs < 0 {
			deltaTsNeg++
		}
	}

	var out []*Finding
	if scaledOut > 0 {
		out = append(out, &Finding{
			Kind: models.FindingRange, Column: "scaled_value", Count: scaledOut,
			Detail: map[string]any{"expected": "[0,100]"},
		})
	}
	if faultOut > 0 {
		out = append(out, &Finding{
			Kind: models.FindingRange, Column: "value", Count: faultOut,
			Detail: map[string]any{"metric_type": string(models.MetricFault), "expected": "{0,1}"},
		})
	}
	if currentNeg > 0 {
		out = append(out, &Finding{
			Kind: models.FindingRange, Column: "value", Count: currentNeg,
			Detail: map[string]any{"metric_type": string(models.MetricCurrent), "expected": ">= 0"},
		})
	}
	if deltaTsNeg > 0 {
		out = append(out, &Finding{
			Kind: models.FindingRange, Column: "delta_ts_ms", Count: deltaTsNeg,
			Detail: map[string]any{"expected": ">= 0"},
		})
	}
	return out
}

func optStr(v *float64) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%v", *v)
}
