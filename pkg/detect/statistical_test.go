package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/crossguard/pkg/dataset"
)

// basicDataset mirrors a small slice of monthly crossing counts with one
// clear outlier (id 4) and one missing value (id 7).
func basicDataset() dataset.Dataset {
	values := []*float64{
		dataset.Float64(10.0),
		dataset.Float64(11.0),
		dataset.Float64(10.5),
		dataset.Float64(100.0),
		dataset.Float64(9.8),
		dataset.Float64(10.2),
		nil,
	}
	dates := []string{
		"2023-01-01", "2023-02-01", "2023-03-01", "2023-04-01",
		"2023-05-01", "2023-06-01", "2023-07-01",
	}

	ds := make(dataset.Dataset, len(values))
	for i := range values {
		ds[i] = dataset.Row{ID: int64(i + 1), Value: values[i], Date: dates[i]}
	}
	return ds
}

func resultByID(t *testing.T, rep *Report, id int64) dataset.Result {
	t.Helper()
	for _, res := range rep.Results {
		if res.ID == id {
			return res
		}
	}
	t.Fatalf("no result for id %d", id)
	return dataset.Result{}
}

func TestStatisticalFindsOutlier(t *testing.T) {
	d := &StatisticalDetector{Threshold: 2.0}
	rep := d.Detect(basicDataset())

	require.Len(t, rep.Results, 7)

	outlier := resultByID(t, rep, 4)
	assert.True(t, outlier.IsAnomaly)
	assert.Contains(t, outlier.AnomalyReason, "Statistical: Z-score")
	assert.Contains(t, outlier.AnomalyReason, "exceeds threshold 2.0")

	for _, id := range []int64{1, 2, 3, 5, 6} {
		assert.False(t, resultByID(t, rep, id).IsAnomaly, "id %d should not be flagged", id)
	}

	missing := resultByID(t, rep, 7)
	assert.False(t, missing.IsAnomaly, "missing value must never be flagged")
	assert.Empty(t, missing.AnomalyReason)
}

func TestStatisticalNoOutliers(t *testing.T) {
	ds := dataset.Dataset{
		{ID: 1, Value: dataset.Float64(10.0)},
		{ID: 2, Value: dataset.Float64(10.5)},
		{ID: 3, Value: dataset.Float64(11.0)},
	}
	d := &StatisticalDetector{Threshold: 3.0}
	rep := d.Detect(ds)
	assert.Empty(t, rep.Flagged())
	assert.Empty(t, rep.Warnings)
}

func TestStatisticalDegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		ds   dataset.Dataset
	}{
		{
			name: "zero standard deviation",
			ds: dataset.Dataset{
				{ID: 1, Value: dataset.Float64(10.0)},
				{ID: 2, Value: dataset.Float64(10.0)},
				{ID: 3, Value: dataset.Float64(10.0)},
			},
		},
		{
			name: "single value",
			ds:   dataset.Dataset{{ID: 1, Value: dataset.Float64(10.0)}},
		},
		{
			name: "all missing",
			ds:   dataset.Dataset{{ID: 1}, {ID: 2}},
		},
		{
			name: "empty dataset",
			ds:   dataset.Dataset{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &StatisticalDetector{Threshold: 3.0}
			rep := d.Detect(tt.ds)

			require.Len(t, rep.Results, len(tt.ds))
			assert.Empty(t, rep.Flagged())
			assert.NotEmpty(t, rep.Warnings)
			for _, res := range rep.Results {
				assert.Empty(t, res.AnomalyReason)
			}
		})
	}
}
