package series

import (
	"testing"

	"PowerPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(h int, v float64) models.SeriesPoint {
	return models.SeriesPoint{TimeKey: models.HourKey(h), Values: map[models.Measure]float64{models.MeasurePrice: v}, Samples: 1}
}

func TestComputeStatsFirstOccurrenceOnTies(t *testing.T) {
	series := []models.SeriesPoint{point(0, 5), point(1, 9), point(2, 1), point(3, 9), point(4, 1)}
	st := ComputeStats(series, models.MeasurePrice, false)
	require.NotNil(t, st)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 9.0, st.Max)
	assert.Equal(t, "02:00", st.MinTimeKey.String())
	assert.Equal(t, "01:00", st.MaxTimeKey.String())
	assert.Equal(t, 5.0, st.Average)
	assert.Equal(t, 5, st.BucketCount)
}

func TestComputeStatsEmptyIsNil(t *testing.T) {
	assert.Nil(t, ComputeStats(nil, models.MeasurePrice, false))
	assert.Nil(t, ComputeStatsSet([]models.SeriesPoint{}, priceOnly, false))
}

func TestComputeStatsRealOnly(t *testing.T) {
	synth := point(1, 1000)
	synth.Synthetic = true
	synth.Samples = 0
	series := []models.SeriesPoint{point(0, 10), synth, point(2, 30)}

	all := ComputeStats(series, models.MeasurePrice, false)
	require.NotNil(t, all)
	assert.Equal(t, 1000.0, all.Max)
	assert.Equal(t, 1, all.SyntheticCount)
	assert.Equal(t, 3, all.BucketCount)

	realOnly := ComputeStats(series, models.MeasurePrice, true)
	require.NotNil(t, realOnly)
	assert.Equal(t, 30.0, realOnly.Max)
	assert.Equal(t, 20.0, realOnly.Average)
	assert.Equal(t, 2, realOnly.BucketCount)
	assert.Zero(t, realOnly.SyntheticCount)
}

func TestComputeStatsSetSkipsMeasuresWithoutValues(t *testing.T) {
	series := []models.SeriesPoint{point(0, 10)}
	set := ComputeStatsSet(series, models.QuantityBids.Measures(), false)
	assert.Nil(t, set)

	set = ComputeStatsSet(series, []models.Measure{models.MeasurePrice, models.MeasureSellBid}, false)
	require.Len(t, set, 1)
	assert.Contains(t, set, models.MeasurePrice)
}
