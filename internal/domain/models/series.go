package models

import (
	"encoding/json"
	"fmt"
	"time"

	"PowerPull/pkg/util"
)

// Granularity is the bucket size of a series.
type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	return g == GranularityHourly || g == GranularityDaily
}

// HoursPerDay is the bucket count of every hourly series.
const HoursPerDay = 24

// DailyLabelLayout is the display form of daily time keys.
const DailyLabelLayout = "02 Jan 2006"

// TimeKey identifies one bucket. Ordinal is the hour of day (0..23) for hourly
// keys and the epoch day of the calendar date for daily keys, so keys of one
// granularity sort by Ordinal and compare with ==.
type TimeKey struct {
	Granularity Granularity
	Ordinal     int
}

// HourKey returns the hourly key for hour h (0..23).
func HourKey(h int) TimeKey {
	return TimeKey{Granularity: GranularityHourly, Ordinal: h}
}

// DayKey returns the daily key for the civil date of d.
func DayKey(d time.Time) TimeKey {
	return TimeKey{Granularity: GranularityDaily, Ordinal: util.EpochDay(d)}
}

// Hour returns the hour of an hourly key.
func (k TimeKey) Hour() int { return k.Ordinal }

// Date returns the calendar date of a daily key.
func (k TimeKey) Date() time.Time { return util.FromEpochDay(k.Ordinal) }

// Before reports whether k sorts before o.
func (k TimeKey) Before(o TimeKey) bool { return k.Ordinal < o.Ordinal }

// String renders the display label: "HH:00" or "02 Jan 2006".
func (k TimeKey) String() string {
	if k.Granularity == GranularityDaily {
		return k.Date().Format(DailyLabelLayout)
	}
	return fmt.Sprintf("%02d:00", k.Ordinal)
}

// MarshalJSON encodes the key as its label.
func (k TimeKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// SeriesPoint is one bucket of a finished series.
type SeriesPoint struct {
	TimeKey TimeKey             `json:"timeKey"`
	Values  map[Measure]float64 `json:"values"`
	// Samples counts the raw records that contributed to the bucket; zero for synthesized buckets.
	Samples   int       `json:"samples"`
	Synthetic bool      `json:"synthetic"`
	Filled    []Measure `json:"filled,omitempty"`
}

// IsFilled reports whether the value of m was synthesized.
func (p SeriesPoint) IsFilled(m Measure) bool {
	if p.Synthetic {
		return true
	}
	for _, f := range p.Filled {
		if f == m {
			return true
		}
	}
	return false
}

// SeriesStats summarizes one measure over a series.
type SeriesStats struct {
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	Average        float64 `json:"average"`
	MinTimeKey     TimeKey `json:"minTimeKey"`
	MaxTimeKey     TimeKey `json:"maxTimeKey"`
	BucketCount    int     `json:"bucketCount"`
	SyntheticCount int     `json:"syntheticCount"`
}

// StatsSet holds stats per measure. A nil set encodes as JSON null.
type StatsSet map[Measure]*SeriesStats

// Output is what a view consumer receives for one quantity.
type Output struct {
	Series  []SeriesPoint `json:"series"`
	Stats   StatsSet      `json:"stats"`
	Loading bool          `json:"loading"`
	Error   *string       `json:"error"`
}

// EmptyOutput returns an output with an empty, non-nil series.
func EmptyOutput() Output {
	return Output{Series: []SeriesPoint{}}
}

// FailedOutput returns the cleared output reported when a source fails.
func FailedOutput(err error) Output {
	msg := err.Error()
	return Output{Series: []SeriesPoint{}, Error: &msg}
}
