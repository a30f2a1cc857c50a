// Package detect classifies border-crossing observations as anomalous under
// configurable detection policies.
//
// Detection is a pure transform: every pass returns one Result per input row,
// in input order, and never mutates the dataset. Data-quality problems
// (missing values, too few observations, degenerate variance, unparseable
// dates, decomposition failures) never surface as errors; they degrade the
// pass to a zero-flag result and are recorded as warnings on the Report.
package detect

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hed1ad/crossguard/pkg/dataset"
)

// Policy identifies a detection algorithm.
type Policy string

const (
	// PolicyStatistical flags global outliers by z-score.
	PolicyStatistical Policy = "statistical"
	// PolicyOutOfRange flags values outside a configured band.
	PolicyOutOfRange Policy = "out_of_range"
	// PolicyTimeSeriesSTL flags large residuals after seasonal-trend
	// decomposition of the dated series.
	PolicyTimeSeriesSTL Policy = "time_series_stl"
)

// DateFormat is the canonical timestamp layout for dataset rows.
const DateFormat = "2006-01-02"

// Config selects and parameterizes a detection pass. It is immutable for the
// duration of a pass and never persisted.
type Config struct {
	// Policy selects the detection algorithm.
	Policy Policy

	// Threshold is the z-score magnitude above which a value is flagged.
	// The comparison is strict: |z| equal to Threshold is not an anomaly.
	Threshold float64

	// MinValue and MaxValue bound the allowed band for PolicyOutOfRange.
	// At least one should be set; with neither, the pass returns zero flags
	// and a warning.
	MinValue *float64
	MaxValue *float64

	// SeasonalPeriod is the number of observations per seasonal cycle for
	// PolicyTimeSeriesSTL.
	SeasonalPeriod int
}

// DefaultConfig returns the standard detection parameters.
func DefaultConfig() Config {
	return Config{
		Policy:         PolicyStatistical,
		Threshold:      3.0,
		SeasonalPeriod: 12,
	}
}

// Validate rejects configuration that cannot produce a meaningful pass.
// Unknown policies are deliberately not rejected here; dispatch degrades
// them to a warning so library consumers keep the fail-open contract.
func (c Config) Validate() error {
	switch c.Policy {
	case PolicyStatistical, PolicyTimeSeriesSTL:
		if math.IsNaN(c.Threshold) || c.Threshold <= 0 {
			return fmt.Errorf("threshold must be a positive number, got %v", c.Threshold)
		}
	}
	if c.Policy == PolicyTimeSeriesSTL && c.SeasonalPeriod <= 0 {
		return fmt.Errorf("seasonal period must be positive, got %d", c.SeasonalPeriod)
	}
	return nil
}

// Detector classifies every row of a dataset under one policy.
type Detector interface {
	Detect(ds dataset.Dataset) *Report
}

// Report is the outcome of one detection pass. Results is aligned 1:1, in
// order, with the input dataset. Warnings records the data-quality
// conditions that degraded the pass to a conservative result.
type Report struct {
	Results  []dataset.Result
	Warnings []string
}

// newReport returns a zero-flag report aligned with ds.
func newReport(ds dataset.Dataset) *Report {
	results := make([]dataset.Result, len(ds))
	for i, row := range ds {
		results[i] = dataset.Result{ID: row.ID}
	}
	return &Report{Results: results}
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Flagged returns only the results marked anomalous, in input order.
func (r *Report) Flagged() []dataset.Result {
	var flagged []dataset.Result
	for _, res := range r.Results {
		if res.IsAnomaly {
			flagged = append(flagged, res)
		}
	}
	return flagged
}

// sampleStats returns the mean and sample standard deviation of values.
// The standard deviation is NaN when fewer than two values are given.
func sampleStats(values []float64) (mean, std float64) {
	n := len(values)
	if n == 0 {
		return 0, math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, math.NaN()
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n-1))
}

// formatValue renders a float the way reason strings expect: integral
// values keep one decimal ("20.0"), everything else uses the shortest
// exact form ("9.9").
func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
