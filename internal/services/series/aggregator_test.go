package series

import (
	"testing"

	"PowerPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestAggregateMeanPerMeasure(t *testing.T) {
	d := date(2025, 7, 1)
	records := []KeyedRecord{
		{Key: models.HourKey(3), Record: models.RawRecord{Date: d, Price: f64(100), PurchaseBid: f64(10)}},
		{Key: models.HourKey(3), Record: models.RawRecord{Date: d, Price: f64(201)}},
		{Key: models.HourKey(1), Record: models.RawRecord{Date: d, Price: f64(50)}},
	}
	points := Aggregate(records, []models.Measure{models.MeasurePrice, models.MeasurePurchaseBid})
	require.Len(t, points, 2)

	assert.Equal(t, "01:00", points[0].TimeKey.String())
	assert.Equal(t, 50.0, points[0].Values[models.MeasurePrice])
	_, hasBid := points[0].Values[models.MeasurePurchaseBid]
	assert.False(t, hasBid, "missing readings must stay absent, not zero")

	assert.Equal(t, "03:00", points[1].TimeKey.String())
	assert.Equal(t, 150.5, points[1].Values[models.MeasurePrice])
	assert.Equal(t, 10.0, points[1].Values[models.MeasurePurchaseBid])
	assert.Equal(t, 2, points[1].Samples)
}

func TestAggregateSkipsRecordsWithoutRequestedMeasures(t *testing.T) {
	d := date(2025, 7, 1)
	records := []KeyedRecord{
		{Key: models.HourKey(5), Record: models.RawRecord{Date: d, SellBid: f64(20)}},
	}
	points := Aggregate(records, []models.Measure{models.MeasurePrice})
	assert.Empty(t, points)
	assert.NotNil(t, points)
}

func TestAggregateRoundsToTwoDecimals(t *testing.T) {
	d := date(2025, 7, 1)
	records := []KeyedRecord{
		{Key: models.DayKey(d), Record: models.RawRecord{Date: d, Price: f64(1)}},
		{Key: models.DayKey(d), Record: models.RawRecord{Date: d, Price: f64(1)}},
		{Key: models.DayKey(d), Record: models.RawRecord{Date: d, Price: f64(2)}},
	}
	points := Aggregate(records, []models.Measure{models.MeasurePrice})
	require.Len(t, points, 1)
	assert.Equal(t, 1.33, points[0].Values[models.MeasurePrice])
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, -1.24, Round2(-1.235))
	assert.Equal(t, 4012.0, Round2(4012))
}
