// Package api exposes the border-crossing dataset and anomaly detection
// over HTTP.
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/hed1ad/crossguard/pkg/dataset"
	"github.com/hed1ad/crossguard/pkg/detect"
	"github.com/hed1ad/crossguard/pkg/store"
)

// allowedPolicies is the single place request policies are validated. It
// matches exactly the set the engine implements, so no accepted request can
// silently degrade to the engine's unknown-policy path.
var allowedPolicies = map[detect.Policy]bool{
	detect.PolicyStatistical:   true,
	detect.PolicyOutOfRange:    true,
	detect.PolicyTimeSeriesSTL: true,
}

// Server serves the dataset API.
type Server struct {
	store *store.Store
}

// NewServer creates a server over st.
func NewServer(st *store.Store) *Server {
	return &Server{store: st}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hello", s.handleHello)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/data", s.handleData)
	mux.HandleFunc("GET /api/anomalies", s.handleAnomalies)
	mux.HandleFunc("GET /api/filter-options", s.handleFilterOptions)
	return mux
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "Hello, World!")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "API is running"})
}

// handleData returns entries matching the query filters.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.store.Query(r.Context(), filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, entries)
}

// anomalyRecord is an entry augmented with its classification.
type anomalyRecord struct {
	store.Entry
	IsAnomaly     bool   `json:"is_anomaly"`
	AnomalyReason string `json:"anomaly_reason"`
}

// handleAnomalies fetches entries matching the filters and returns the ones
// flagged by the selected detection policy.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	policy := detect.Policy(q.Get("anomaly_type"))
	if policy == "" {
		policy = detect.PolicyStatistical
	}
	if !allowedPolicies[policy] {
		jsonError(w, http.StatusBadRequest,
			"invalid 'anomaly_type'; must be 'statistical', 'out_of_range', or 'time_series_stl'")
		return
	}

	cfg := detect.DefaultConfig()
	cfg.Policy = policy

	threshold, err := floatParam(q.Get("threshold"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid 'threshold' parameter")
		return
	}
	if threshold != nil {
		cfg.Threshold = *threshold
	}
	if cfg.MinValue, err = floatParam(q.Get("value_min")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid 'value_min' parameter")
		return
	}
	if cfg.MaxValue, err = floatParam(q.Get("value_max")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid 'value_max' parameter")
		return
	}
	if period, err := intParam(q.Get("seasonal_period")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid 'seasonal_period' parameter")
		return
	} else if period != nil {
		cfg.SeasonalPeriod = int(*period)
	}

	if policy == detect.PolicyOutOfRange && cfg.MinValue == nil && cfg.MaxValue == nil {
		jsonError(w, http.StatusBadRequest,
			"'out_of_range' requires at least 'value_min' or 'value_max' parameter")
		return
	}

	engine, err := detect.NewEngine(cfg)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Range parameters configure the detector here; they are not a SQL
	// pre-filter as they are on /api/data.
	filter.ValueMin = nil
	filter.ValueMax = nil
	filter.RequireValue = true

	entries, err := s.store.Query(r.Context(), filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}

	records := []anomalyRecord{}
	if len(entries) == 0 {
		writeJSON(w, records)
		return
	}

	ds := make(dataset.Dataset, len(entries))
	for i, e := range entries {
		row := dataset.Row{ID: e.ID, Date: e.Date}
		if e.Value != nil {
			row.Value = dataset.Float64(float64(*e.Value))
		}
		ds[i] = row
	}

	report := engine.Detect(ds)
	for i, res := range report.Results {
		if !res.IsAnomaly {
			continue
		}
		records = append(records, anomalyRecord{
			Entry:         entries[i],
			IsAnomaly:     true,
			AnomalyReason: res.AnomalyReason,
		})
	}
	writeJSON(w, records)
}

// filterOptionsResponse extends the store options with the policy list.
type filterOptionsResponse struct {
	*store.Options
	AnomalyTypes []store.OptionItem `json:"anomaly_types"`
}

func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.store.FilterOptions(r.Context())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("database error fetching options: %v", err))
		return
	}
	writeJSON(w, filterOptionsResponse{
		Options: opts,
		AnomalyTypes: []store.OptionItem{
			{Value: string(detect.PolicyStatistical), Label: "Statistical (Z-Score)"},
			{Value: string(detect.PolicyOutOfRange), Label: "Out of Range (Min/Max)"},
			{Value: string(detect.PolicyTimeSeriesSTL), Label: "Time Series (STL Residual)"},
		},
	})
}

// parseFilter reads the shared filter parameters. Malformed numeric values
// are request errors.
func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{
		PortName: q.Get("port_name"),
		State:    q.Get("state"),
		Border:   q.Get("border"),
		Measure:  q.Get("measure"),
		Date:     q.Get("date"),
	}

	code, err := intParam(q.Get("port_code"))
	if err != nil {
		return f, fmt.Errorf("invalid 'port_code' parameter")
	}
	f.PortCode = code

	if f.ValueMin, err = floatParam(q.Get("value_min")); err != nil {
		return f, fmt.Errorf("invalid 'value_min' parameter")
	}
	if f.ValueMax, err = floatParam(q.Get("value_max")); err != nil {
		return f, fmt.Errorf("invalid 'value_max' parameter")
	}
	return f, nil
}

func floatParam(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intParam(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
