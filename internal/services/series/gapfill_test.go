package series

import (
	"testing"

	"PowerPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constRand always draws the same value; 0.5 yields a jitter factor of exactly 1.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func testFiller(p Policy) *GapFiller {
	return NewGapFiller(GapFillOptions{
		Policy:        p,
		BaselinePrice: 4000,
		Baselines: map[models.Measure]float64{
			models.MeasurePurchaseBid: 9000,
			models.MeasureSellBid:     8000,
		},
		Jitter:      0.05,
		DailyJitter: 0.03,
	})
}

var priceOnly = []models.Measure{models.MeasurePrice}

func TestFillHourlyUsesDiurnalShape(t *testing.T) {
	observed := []models.SeriesPoint{{
		TimeKey: models.HourKey(5),
		Values:  map[models.Measure]float64{models.MeasurePrice: 1234.5},
		Samples: 1,
	}}
	out, n := testFiller(PolicyPartial).Fill(models.GranularityHourly, models.Boundary{}, priceOnly, observed, constRand(0.5))
	require.Len(t, out, 24)
	assert.Equal(t, 23, n)

	for h, p := range out {
		assert.Equal(t, models.HourKey(h), p.TimeKey)
	}
	assert.Equal(t, 1234.5, out[5].Values[models.MeasurePrice], "real data is never overwritten")
	assert.False(t, out[5].Synthetic)
	assert.Equal(t, Round2(4000*DiurnalShape[0]), out[0].Values[models.MeasurePrice])
	assert.Equal(t, Round2(4000*DiurnalShape[19]), out[19].Values[models.MeasurePrice])
	assert.True(t, out[19].Synthetic)
	assert.Zero(t, out[19].Samples)
}

func TestFillJitterIsBounded(t *testing.T) {
	for _, r := range []float64{0, 0.999999} {
		out, _ := testFiller(PolicyAlways).Fill(models.GranularityHourly, models.Boundary{}, priceOnly, nil, constRand(r))
		require.Len(t, out, 24)
		for h, p := range out {
			base := 4000 * DiurnalShape[h]
			v := p.Values[models.MeasurePrice]
			assert.GreaterOrEqual(t, v, Round2(base*0.95))
			assert.LessOrEqual(t, v, Round2(base*1.05))
		}
	}
}

func TestFillPartialLeavesEmptySeriesEmpty(t *testing.T) {
	out, n := testFiller(PolicyPartial).Fill(models.GranularityHourly, models.Boundary{}, priceOnly, []models.SeriesPoint{}, constRand(0.5))
	assert.Empty(t, out)
	assert.Zero(t, n)
}

func TestFillOffKeepsHoles(t *testing.T) {
	observed := []models.SeriesPoint{{TimeKey: models.HourKey(1), Values: map[models.Measure]float64{models.MeasurePrice: 1}}}
	out, n := testFiller(PolicyOff).Fill(models.GranularityHourly, models.Boundary{}, priceOnly, observed, constRand(0.5))
	assert.Len(t, out, 1)
	assert.Zero(t, n)
}

func TestFillMarksMissingMeasuresInsideRealBuckets(t *testing.T) {
	bids := models.QuantityBids.Measures()
	observed := []models.SeriesPoint{{
		TimeKey: models.DayKey(date(2025, 7, 1)),
		Values:  map[models.Measure]float64{models.MeasurePurchaseBid: 500},
		Samples: 3,
	}}
	b := models.Boundary{Lookback: models.LookbackAll, Open: true}
	out, n := testFiller(PolicyPartial).Fill(models.GranularityDaily, b, bids, observed, constRand(0.5))
	require.Len(t, out, 1)
	assert.Zero(t, n)
	assert.False(t, out[0].Synthetic)
	assert.Equal(t, []models.Measure{models.MeasureSellBid}, out[0].Filled)
	assert.Equal(t, 8000.0, out[0].Values[models.MeasureSellBid])
	assert.Equal(t, 500.0, out[0].Values[models.MeasurePurchaseBid])
}

func TestFillDailyLookbackWalksBackFromEnd(t *testing.T) {
	b := models.Boundary{Lookback: models.Lookback5D, From: date(2025, 7, 5), To: date(2025, 7, 10), Days: 5}
	observed := []models.SeriesPoint{
		{TimeKey: models.DayKey(date(2025, 7, 8)), Values: map[models.Measure]float64{models.MeasurePrice: 100}, Samples: 24},
		{TimeKey: models.DayKey(date(2025, 7, 10)), Values: map[models.Measure]float64{models.MeasurePrice: 300}, Samples: 24},
	}
	out, n := testFiller(PolicyPartial).Fill(models.GranularityDaily, b, priceOnly, observed, constRand(0.5))
	require.Len(t, out, 5)
	assert.Equal(t, 3, n)

	labels := make([]string, len(out))
	for i, p := range out {
		labels[i] = p.TimeKey.String()
	}
	assert.Equal(t, []string{"06 Jul 2025", "07 Jul 2025", "08 Jul 2025", "09 Jul 2025", "10 Jul 2025"}, labels)
	assert.Equal(t, 200.0, out[0].Values[models.MeasurePrice], "synthesized from the mean of real days")
	assert.Equal(t, 100.0, out[2].Values[models.MeasurePrice])
	assert.False(t, out[4].Synthetic)
}

func TestFillDailyCustomCoversRangeWithCap(t *testing.T) {
	b := models.Boundary{Lookback: models.LookbackCustom, From: date(2020, 1, 1), To: date(2025, 1, 1)}
	observed := []models.SeriesPoint{
		{TimeKey: models.DayKey(date(2024, 12, 31)), Values: map[models.Measure]float64{models.MeasurePrice: 10}, Samples: 1},
	}
	out, n := testFiller(PolicyPartial).Fill(models.GranularityDaily, b, priceOnly, observed, constRand(0.5))
	require.Len(t, out, maxCustomDays)
	assert.Equal(t, maxCustomDays-1, n)
	assert.Equal(t, models.DayKey(date(2025, 1, 1)), out[len(out)-1].TimeKey)
}

func TestFillDailyAllAddsNoDates(t *testing.T) {
	b := models.Boundary{Lookback: models.LookbackAll, Open: true}
	observed := []models.SeriesPoint{
		{TimeKey: models.DayKey(date(2025, 1, 1)), Values: map[models.Measure]float64{models.MeasurePrice: 10}},
		{TimeKey: models.DayKey(date(2025, 3, 1)), Values: map[models.Measure]float64{models.MeasurePrice: 20}},
	}
	out, n := testFiller(PolicyAlways).Fill(models.GranularityDaily, b, priceOnly, observed, constRand(0.5))
	assert.Len(t, out, 2)
	assert.Zero(t, n)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyPartial, p)

	p, err = ParsePolicy("ALWAYS")
	require.NoError(t, err)
	assert.Equal(t, PolicyAlways, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
