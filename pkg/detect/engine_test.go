package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/crossguard/pkg/dataset"
)

func TestNewEngineValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "defaults",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "stl with valid period",
			cfg:     Config{Policy: PolicyTimeSeriesSTL, Threshold: 3.0, SeasonalPeriod: 12},
			wantErr: false,
		},
		{
			name:    "stl with non-positive period",
			cfg:     Config{Policy: PolicyTimeSeriesSTL, Threshold: 3.0, SeasonalPeriod: 0},
			wantErr: true,
		},
		{
			name:    "statistical with zero threshold",
			cfg:     Config{Policy: PolicyStatistical, Threshold: 0},
			wantErr: true,
		},
		{
			name: "range policy ignores threshold",
			cfg:  Config{Policy: PolicyOutOfRange, MinValue: dataset.Float64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineDispatch(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		ds        dataset.Dataset
		flaggedID int64
	}{
		{
			name:      "statistical",
			cfg:       Config{Policy: PolicyStatistical, Threshold: 2.0},
			ds:        basicDataset(),
			flaggedID: 4,
		},
		{
			name:      "out_of_range",
			cfg:       Config{Policy: PolicyOutOfRange, MinValue: dataset.Float64(9.9)},
			ds:        basicDataset(),
			flaggedID: 5,
		},
		{
			name:      "time_series_stl",
			cfg:       Config{Policy: PolicyTimeSeriesSTL, Threshold: 3.0, SeasonalPeriod: 12},
			ds:        monthlyDataset(seasonalValues()),
			flaggedID: 18,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.cfg)
			require.NoError(t, err)

			rep := engine.Detect(tt.ds)
			flagged := rep.Flagged()
			require.Len(t, flagged, 1)
			assert.Equal(t, tt.flaggedID, flagged[0].ID)
		})
	}
}

func TestEngineUnknownPolicy(t *testing.T) {
	engine, err := NewEngine(Config{Policy: Policy("does_not_exist")})
	require.NoError(t, err, "unknown policy is not a construction error")

	rep := engine.Detect(basicDataset())
	assert.Empty(t, rep.Flagged())
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "unknown anomaly policy")
	assert.Len(t, rep.Results, 7)
}

func TestEngineCardinalityPreserved(t *testing.T) {
	configs := []Config{
		{Policy: PolicyStatistical, Threshold: 2.0},
		{Policy: PolicyOutOfRange, MinValue: dataset.Float64(9.9)},
		{Policy: PolicyTimeSeriesSTL, Threshold: 3.0, SeasonalPeriod: 12},
	}
	ds := monthlyDataset(seasonalValues())

	for _, cfg := range configs {
		t.Run(string(cfg.Policy), func(t *testing.T) {
			engine, err := NewEngine(cfg)
			require.NoError(t, err)

			rep := engine.Detect(ds)
			require.Len(t, rep.Results, len(ds))
			for i, row := range ds {
				assert.Equal(t, row.ID, rep.Results[i].ID)
			}
		})
	}
}

func TestEngineIdempotent(t *testing.T) {
	engine, err := NewEngine(Config{Policy: PolicyTimeSeriesSTL, Threshold: 3.0, SeasonalPeriod: 12})
	require.NoError(t, err)

	ds := monthlyDataset(seasonalValues())
	first := engine.Detect(ds)
	second := engine.Detect(ds)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestEngineDoesNotMutateInput(t *testing.T) {
	ds := basicDataset()
	snapshot := make(dataset.Dataset, len(ds))
	copy(snapshot, ds)

	engine, err := NewEngine(Config{Policy: PolicyStatistical, Threshold: 2.0})
	require.NoError(t, err)
	engine.Detect(ds)

	assert.Equal(t, snapshot, ds)
}

func TestMissingValuesNeverFlagged(t *testing.T) {
	ds := dataset.Dataset{
		{ID: 1, Value: nil, Date: "2023-01-01"},
		{ID: 2, Value: dataset.Float64(10), Date: "2023-02-01"},
		{ID: 3, Value: dataset.Float64(1e9), Date: "2023-03-01"},
	}
	configs := []Config{
		{Policy: PolicyStatistical, Threshold: 0.1},
		{Policy: PolicyOutOfRange, MinValue: dataset.Float64(1e12)},
		{Policy: PolicyTimeSeriesSTL, Threshold: 0.1, SeasonalPeriod: 12},
	}

	for _, cfg := range configs {
		t.Run(string(cfg.Policy), func(t *testing.T) {
			engine, err := NewEngine(cfg)
			require.NoError(t, err)

			rep := engine.Detect(ds)
			res := resultByID(t, rep, 1)
			assert.False(t, res.IsAnomaly)
			assert.Empty(t, res.AnomalyReason)
		})
	}
}
