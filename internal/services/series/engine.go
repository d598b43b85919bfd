package series

import (
	"math/rand"

	"PowerPull/internal/domain/models"
)

// Options configure an Engine.
type Options struct {
	Convention    HourConvention
	Policy        Policy
	BaselinePrice float64
	Baselines     map[models.Measure]float64
	Jitter        float64
	DailyJitter   float64
	// Seed makes synthesis reproducible; zero seeds from the clock per run.
	Seed int64
}

// EngineOption configures optional Engine behaviour.
type EngineOption func(*Engine)

// WithRandSource overrides how each run obtains its random source.
func WithRandSource(fn func() Rand) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newRand = fn
		}
	}
}

// Engine runs normalize, filter, aggregate, fill and stats over a record set.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	normalizer *Normalizer
	filler     *GapFiller
	newRand    func() Rand
}

func NewEngine(opts Options, eopts ...EngineOption) *Engine {
	e := &Engine{
		normalizer: NewNormalizer(opts.Convention),
		filler: NewGapFiller(GapFillOptions{
			Policy:        opts.Policy,
			BaselinePrice: opts.BaselinePrice,
			Baselines:     opts.Baselines,
			Jitter:        opts.Jitter,
			DailyJitter:   opts.DailyJitter,
		}),
	}
	seed := opts.Seed
	e.newRand = func() Rand {
		if seed != 0 {
			return rand.New(rand.NewSource(seed))
		}
		return rand.New(rand.NewSource(seedFromClock()))
	}
	for _, o := range eopts {
		o(e)
	}
	return e
}

// Input is one (window, quantity) pipeline invocation.
type Input struct {
	Granularity   models.Granularity
	Boundary      models.Boundary
	Measures      []models.Measure
	Records       []models.RawRecord
	RealOnlyStats bool
}

// Result carries the finished series plus counters for logging and metrics.
type Result struct {
	Series      []models.SeriesPoint
	Stats       models.StatsSet
	Matched     int // records inside the window that received a key
	Skipped     int // records inside the window without a usable key
	Synthesized int // buckets fabricated by the gap filler
}

// Output converts the result into the consumer contract.
func (r Result) Output() models.Output {
	return models.Output{Series: r.Series, Stats: r.Stats}
}

// Run executes the pipeline. Identical inputs give identical results when a seed is set.
func (e *Engine) Run(in Input) Result {
	res := Result{Series: []models.SeriesPoint{}}
	if in.Boundary.Empty {
		return res
	}

	keyed := make([]KeyedRecord, 0, len(in.Records))
	daily := in.Granularity == models.GranularityDaily
	for _, rec := range in.Records {
		// daily buckets are windowed by the date they are keyed to
		if !daily && !in.Boundary.Contains(rec.Date) {
			continue
		}
		key, err := e.normalizer.Key(in.Granularity, rec)
		if err != nil {
			res.Skipped++
			continue
		}
		if daily && !in.Boundary.Contains(key.Date()) {
			continue
		}
		keyed = append(keyed, KeyedRecord{Key: key, Record: rec})
	}
	res.Matched = len(keyed)

	points := Aggregate(keyed, in.Measures)
	points, res.Synthesized = e.filler.Fill(in.Granularity, in.Boundary, in.Measures, points, e.newRand())
	if points != nil {
		res.Series = points
	}
	res.Stats = ComputeStatsSet(res.Series, in.Measures, in.RealOnlyStats)
	return res
}
