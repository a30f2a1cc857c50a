package detect

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hed1ad/crossguard/pkg/dataset"
	"github.com/hed1ad/crossguard/pkg/detect/stl"
)

// SeasonalResidualDetector decomposes the dated value series into trend,
// seasonal, and residual components and flags timestamps whose residual
// z-score magnitude strictly exceeds Threshold. Every original row sharing a
// flagged timestamp is flagged with the same z-score, so duplicate dates
// fan out consistently.
//
// Rows with a missing value or an unparseable date are excluded from the
// decomposition input and never flagged. Any irregularity (no dates, too few
// observations, degenerate residual spread, decomposition failure) degrades
// to zero flags with a warning.
type SeasonalResidualDetector struct {
	Threshold float64
	Period    int
}

// observation ties one series entry back to its position in the input
// dataset so identity survives the chronological re-sort.
type observation struct {
	when  time.Time
	value float64
	idx   int
}

// Detect classifies every row of ds.
func (d *SeasonalResidualDetector) Detect(ds dataset.Dataset) *Report {
	rep := newReport(ds)

	anyDate := false
	obs := make([]observation, 0, len(ds))
	for i, row := range ds {
		if row.Date != "" {
			anyDate = true
		}
		if row.Value == nil || row.Date == "" {
			continue
		}
		when, err := time.Parse(DateFormat, row.Date)
		if err != nil {
			// Unparseable dates are excluded, never flagged, never fatal.
			continue
		}
		obs = append(obs, observation{when: when, value: *row.Value, idx: i})
	}

	if !anyDate {
		rep.warnf("dataset has no dates; seasonal residual detection not applicable")
		return rep
	}
	if len(obs) < 2*d.Period {
		rep.warnf("insufficient observations for seasonal decomposition: have %d, need %d", len(obs), 2*d.Period)
		return rep
	}

	// Stable sort keeps input order among rows sharing a timestamp.
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].when.Before(obs[j].when) })

	values := make([]float64, len(obs))
	byDate := make(map[time.Time][]int)
	for i, o := range obs {
		values[i] = o.value
		byDate[o.when] = append(byDate[o.when], o.idx)
	}

	decomp, err := stl.Decompose(values, d.Period,
		stl.WithSeasonalWidth(stl.SeasonalWidth(d.Period)),
		stl.WithRobust(true),
	)
	if err != nil {
		rep.warnf("seasonal decomposition failed: %v", err)
		return rep
	}

	// Residual spread at floating-point noise scale means the series was
	// fit essentially exactly; z-scores over it would be meaningless.
	mean, std := sampleStats(decomp.Residual)
	if math.IsNaN(std) || std <= 1e-9*maxAbs(values) {
		rep.warnf("zero or negligible residual standard deviation; no seasonal anomalies")
		return rep
	}

	for i, o := range obs {
		z := (decomp.Residual[i] - mean) / std
		if math.Abs(z) <= d.Threshold {
			continue
		}
		// Fan out to every row sharing the flagged timestamp, all with the
		// same z-score. Already-flagged rows keep their first reason.
		for _, idx := range byDate[o.when] {
			if rep.Results[idx].IsAnomaly {
				continue
			}
			rep.Results[idx].IsAnomaly = true
			rep.Results[idx].AnomalyReason = seasonalReason(z, d.Threshold)
		}
	}
	return rep
}

func seasonalReason(z, threshold float64) string {
	return fmt.Sprintf("Time Series STL: Residual Z-score %.2f exceeds threshold %s", z, formatValue(threshold))
}

func maxAbs(values []float64) float64 {
	var m float64
	for _, v := range values {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
