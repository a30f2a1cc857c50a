package detect

import (
	"fmt"
	"math"

	"github.com/hed1ad/crossguard/pkg/dataset"
)

// StatisticalDetector flags values whose z-score magnitude over the whole
// dataset strictly exceeds Threshold. Missing values are excluded from the
// statistics and never flagged.
type StatisticalDetector struct {
	Threshold float64
}

// Detect classifies every row of ds. With fewer than two non-missing values
// or a degenerate (zero or undefined) spread it returns zero flags.
func (d *StatisticalDetector) Detect(ds dataset.Dataset) *Report {
	rep := newReport(ds)

	values := make([]float64, 0, len(ds))
	for _, row := range ds {
		if row.Value != nil {
			values = append(values, *row.Value)
		}
	}
	if len(values) < 2 {
		rep.warnf("fewer than 2 values present; cannot estimate spread")
		return rep
	}

	mean, std := sampleStats(values)
	if math.IsNaN(std) || std == 0 {
		rep.warnf("zero or undefined standard deviation; no statistical anomalies")
		return rep
	}

	for i, row := range ds {
		if row.Value == nil {
			continue
		}
		z := (*row.Value - mean) / std
		if math.Abs(z) > d.Threshold {
			rep.Results[i].IsAnomaly = true
			rep.Results[i].AnomalyReason = statisticalReason(z, d.Threshold)
		}
	}
	return rep
}

func statisticalReason(z, threshold float64) string {
	return fmt.Sprintf("Statistical: Z-score %.2f exceeds threshold %s", z, formatValue(threshold))
}
