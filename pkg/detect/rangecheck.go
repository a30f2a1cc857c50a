package detect

import (
	"fmt"
	"strings"

	"github.com/hed1ad/crossguard/pkg/dataset"
)

// RangeDetector flags values outside the [Min, Max] band. Either bound may
// be nil; with both nil the pass returns zero flags and a warning. When
// Min > Max a value can violate both bounds at once, in which case the
// below-minimum reason comes first, joined by "; ".
type RangeDetector struct {
	Min *float64
	Max *float64
}

// Detect classifies every row of ds. Missing values are never flagged,
// regardless of the band.
func (d *RangeDetector) Detect(ds dataset.Dataset) *Report {
	rep := newReport(ds)

	if d.Min == nil && d.Max == nil {
		rep.warnf("out_of_range policy selected but no minimum or maximum provided")
		return rep
	}

	for i, row := range ds {
		if row.Value == nil {
			continue
		}
		v := *row.Value

		var reasons []string
		if d.Min != nil && v < *d.Min {
			reasons = append(reasons, fmt.Sprintf("Out of Range: Value %s is below minimum %s",
				formatValue(v), formatValue(*d.Min)))
		}
		if d.Max != nil && v > *d.Max {
			reasons = append(reasons, fmt.Sprintf("Out of Range: Value %s is above maximum %s",
				formatValue(v), formatValue(*d.Max)))
		}
		if len(reasons) > 0 {
			rep.Results[i].IsAnomaly = true
			rep.Results[i].AnomalyReason = strings.Join(reasons, "; ")
		}
	}
	return rep
}
