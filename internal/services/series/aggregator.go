package series

import (
	"sort"

	"PowerPull/internal/domain/models"

	"github.com/shopspring/decimal"
)

// KeyedRecord is a window-filtered record with its bucket key.
type KeyedRecord struct {
	Key    models.TimeKey
	Record models.RawRecord
}

type accumulator struct {
	sums    map[models.Measure]float64
	counts  map[models.Measure]int
	samples int
}

// Aggregate reduces keyed records to one point per key holding the
// arithmetic mean of every available measure. Records carrying none of the
// requested measures contribute nothing, and keys without readings are
// absent from the result. Points are sorted by key.
func Aggregate(records []KeyedRecord, measures []models.Measure) []models.SeriesPoint {
	acc := make(map[models.TimeKey]*accumulator)
	for _, kr := range records {
		var a *accumulator
		for _, m := range measures {
			v, ok := kr.Record.Value(m)
			if !ok {
				continue
			}
			if a == nil {
				a = acc[kr.Key]
				if a == nil {
					a = &accumulator{
						sums:   make(map[models.Measure]float64, len(measures)),
						counts: make(map[models.Measure]int, len(measures)),
					}
					acc[kr.Key] = a
				}
				a.samples++
			}
			a.sums[m] += v
			a.counts[m]++
		}
	}

	points := make([]models.SeriesPoint, 0, len(acc))
	for key, a := range acc {
		values := make(map[models.Measure]float64, len(a.counts))
		for m, n := range a.counts {
			values[m] = Round2(a.sums[m] / float64(n))
		}
		points = append(points, models.SeriesPoint{
			TimeKey: key,
			Values:  values,
			Samples: a.samples,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].TimeKey.Before(points[j].TimeKey) })
	return points
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
