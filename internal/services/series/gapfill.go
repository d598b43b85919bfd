package series

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"PowerPull/internal/domain/models"
	"PowerPull/pkg/util"
)

// Policy controls when missing buckets are synthesized.
type Policy string

const (
	// PolicyOff never synthesizes.
	PolicyOff Policy = "off"
	// PolicyPartial completes series that hold at least one real bucket.
	PolicyPartial Policy = "partial"
	// PolicyAlways also fabricates series from zero records.
	PolicyAlways Policy = "always"
)

// ParsePolicy accepts off, partial or always; empty means partial.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyPartial, nil
	case PolicyOff, PolicyPartial, PolicyAlways:
		return p, nil
	default:
		return "", fmt.Errorf("unknown gap fill policy %q", s)
	}
}

// Rand is the pseudo-random source used for jitter. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// maxCustomDays caps how many days a custom daily window is completed to.
const maxCustomDays = 366

// DiurnalShape is the relative hourly price profile: low overnight, a
// morning and an evening peak, medium midday. Index is the clock hour.
var DiurnalShape = [models.HoursPerDay]float64{
	0.78, 0.74, 0.72, 0.71, 0.73, 0.80, 0.92, 1.08,
	1.22, 1.25, 1.15, 1.02, 0.96, 0.94, 0.95, 1.00,
	1.08, 1.20, 1.34, 1.38, 1.30, 1.12, 0.95, 0.85,
}

// GapFillOptions parameterize synthesis.
type GapFillOptions struct {
	Policy        Policy
	BaselinePrice float64                    // Rs/MWh scaled by DiurnalShape
	Baselines     map[models.Measure]float64 // fallbacks for measures without real values
	Jitter        float64                    // hourly bound, e.g. 0.05 for ±5%
	DailyJitter   float64                    // daily bound
}

// GapFiller completes aggregated series. Real values are never overwritten.
type GapFiller struct {
	opts GapFillOptions
}

func NewGapFiller(opts GapFillOptions) *GapFiller {
	if opts.Policy == "" {
		opts.Policy = PolicyPartial
	}
	return &GapFiller{opts: opts}
}

// Fill returns the completed series and the number of synthesized buckets.
// Random draws happen in key order, then in the order of measures, so a
// seeded source reproduces the same output.
func (f *GapFiller) Fill(g models.Granularity, b models.Boundary, measures []models.Measure, points []models.SeriesPoint, rnd Rand) ([]models.SeriesPoint, int) {
	if f.opts.Policy == PolicyOff || b.Empty {
		return points, 0
	}
	if len(points) == 0 && f.opts.Policy != PolicyAlways {
		return points, 0
	}

	means := realMeans(points, measures)
	byKey := make(map[models.TimeKey]models.SeriesPoint, len(points))
	for _, p := range points {
		byKey[p.TimeKey] = p
	}
	for _, k := range f.requiredKeys(g, b, byKey) {
		if _, ok := byKey[k]; !ok {
			byKey[k] = models.SeriesPoint{TimeKey: k, Synthetic: true}
		}
	}

	keys := make([]models.TimeKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]models.SeriesPoint, 0, len(keys))
	synthesized := 0
	for _, k := range keys {
		p := byKey[k]
		if p.Synthetic {
			synthesized++
		}
		for _, m := range measures {
			if _, ok := p.Values[m]; ok {
				continue
			}
			if p.Values == nil {
				p.Values = make(map[models.Measure]float64, len(measures))
			}
			p.Values[m] = f.synthesize(g, k, m, means, rnd)
			if !p.Synthetic {
				p.Filled = append(p.Filled, m)
			}
		}
		out = append(out, p)
	}
	return out, synthesized
}

// requiredKeys lists the buckets a complete series must hold.
func (f *GapFiller) requiredKeys(g models.Granularity, b models.Boundary, present map[models.TimeKey]models.SeriesPoint) []models.TimeKey {
	if g == models.GranularityHourly {
		keys := make([]models.TimeKey, models.HoursPerDay)
		for h := range keys {
			keys[h] = models.HourKey(h)
		}
		return keys
	}
	if b.Open {
		return nil
	}

	switch {
	case b.Days > 0:
		// Walk back from the window end, adding missing dates until the
		// series holds as many days as the token names.
		need := b.Days - len(present)
		var keys []models.TimeKey
		for d := b.To; need > 0 && !d.Before(b.From); d = util.AddDays(d, -1) {
			k := models.DayKey(d)
			if _, ok := present[k]; ok {
				continue
			}
			keys = append(keys, k)
			need--
		}
		return keys
	default:
		from := b.From
		if util.DaysBetween(from, b.To) >= maxCustomDays {
			from = util.AddDays(b.To, -(maxCustomDays - 1))
		}
		var keys []models.TimeKey
		for d := from; !d.After(b.To); d = util.AddDays(d, 1) {
			keys = append(keys, models.DayKey(d))
		}
		return keys
	}
}

func (f *GapFiller) synthesize(g models.Granularity, k models.TimeKey, m models.Measure, means map[models.Measure]float64, rnd Rand) float64 {
	if g == models.GranularityHourly {
		shape := DiurnalShape[k.Hour()]
		if m == models.MeasurePrice {
			return Round2(f.opts.BaselinePrice * shape * jitter(rnd, f.opts.Jitter))
		}
		if mean, ok := means[m]; ok {
			return Round2(mean * jitter(rnd, f.opts.Jitter))
		}
		return Round2(f.baseline(m) * shape * jitter(rnd, f.opts.Jitter))
	}
	if mean, ok := means[m]; ok {
		return Round2(mean * jitter(rnd, f.opts.DailyJitter))
	}
	return Round2(f.baseline(m) * jitter(rnd, f.opts.DailyJitter))
}

func (f *GapFiller) baseline(m models.Measure) float64 {
	if m == models.MeasurePrice {
		return f.opts.BaselinePrice
	}
	return f.opts.Baselines[m]
}

// jitter returns a factor uniformly drawn from [1-bound, 1+bound).
func jitter(rnd Rand, bound float64) float64 {
	if rnd == nil || bound <= 0 {
		return 1
	}
	return 1 + bound*(2*rnd.Float64()-1)
}

// realMeans averages the real bucket values of each measure.
func realMeans(points []models.SeriesPoint, measures []models.Measure) map[models.Measure]float64 {
	means := make(map[models.Measure]float64, len(measures))
	for _, m := range measures {
		sum, n := 0.0, 0
		for _, p := range points {
			if v, ok := p.Values[m]; ok && !p.IsFilled(m) {
				sum += v
				n++
			}
		}
		if n > 0 {
			means[m] = sum / float64(n)
		}
	}
	return means
}

// seedFromClock is used when no seed is configured.
func seedFromClock() int64 { return time.Now().UnixNano() }
