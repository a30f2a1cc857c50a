// Package dataset defines the tabular observation model shared by the
// storage, detection, and API layers.
package dataset

// Row is a single observation. ID is assigned by the data source and stays
// stable through every transformation; detectors resolve back to it after
// any internal sorting or grouping. Value is nil when the observation is
// missing. Date, when present, is in canonical YYYY-MM-DD form.
type Row struct {
	ID    int64
	Value *float64
	Date  string
}

// Dataset is an ordered sequence of rows.
type Dataset []Row

// Result is the classification for one input row. Exactly one Result is
// produced per Row, in input order. AnomalyReason is non-empty exactly when
// IsAnomaly is true.
type Result struct {
	ID            int64  `json:"id"`
	IsAnomaly     bool   `json:"is_anomaly"`
	AnomalyReason string `json:"anomaly_reason"`
}

// Float64 returns a pointer to v, for building optional values.
func Float64(v float64) *float64 {
	return &v
}
