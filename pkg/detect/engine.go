package detect

import (
	"log/slog"

	"github.com/hed1ad/crossguard/pkg/dataset"
)

// Engine dispatches a dataset to the detector selected by its configuration.
// It holds no mutable state; concurrent Detect calls are safe.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine for it. Only genuinely
// invalid configuration is rejected here; data-quality problems are handled
// per pass, fail-open.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Detect runs one detection pass over ds. The input is never mutated; the
// report carries one result per row, in input order. An unrecognized policy
// yields zero flags and a warning rather than an error.
func (e *Engine) Detect(ds dataset.Dataset) *Report {
	var rep *Report
	switch e.cfg.Policy {
	case PolicyStatistical:
		rep = (&StatisticalDetector{Threshold: e.cfg.Threshold}).Detect(ds)
	case PolicyOutOfRange:
		rep = (&RangeDetector{Min: e.cfg.MinValue, Max: e.cfg.MaxValue}).Detect(ds)
	case PolicyTimeSeriesSTL:
		rep = (&SeasonalResidualDetector{Threshold: e.cfg.Threshold, Period: e.cfg.SeasonalPeriod}).Detect(ds)
	default:
		rep = newReport(ds)
		rep.warnf("unknown anomaly policy %q; no anomalies detected", e.cfg.Policy)
	}

	for _, w := range rep.Warnings {
		slog.Warn("detection degraded", "policy", string(e.cfg.Policy), "reason", w)
	}
	return rep
}
