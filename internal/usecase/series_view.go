package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	"PowerPull/internal/services/series"
	applogger "PowerPull/pkg/logger"
)

// ErrUnknownSource is returned when a request names a source that is not configured.
var ErrUnknownSource = errors.New("unknown source")

// ErrInvalidQuantity is returned for an unknown or missing quantity.
var ErrInvalidQuantity = errors.New("invalid quantity")

// SeriesQuery asks for one quantity over one window.
type SeriesQuery struct {
	Granularity   models.Granularity
	Window        models.WindowSpec
	Quantity      models.Quantity
	Source        string
	RealOnlyStats bool
	Session       string
}

// ViewQuery asks for several quantities sharing one window.
type ViewQuery struct {
	Granularity   models.Granularity
	Window        models.WindowSpec
	Quantities    []models.Quantity
	Source        string
	RealOnlyStats bool
	Session       string
}

// SeriesOption configures a SeriesViewUseCase.
type SeriesOption func(*SeriesViewUseCase)

// WithClock overrides the time source used to resolve windows.
func WithClock(now func() time.Time) SeriesOption {
	return func(uc *SeriesViewUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// WithLocation sets the market time zone. Default UTC.
func WithLocation(loc *time.Location) SeriesOption {
	return func(uc *SeriesViewUseCase) {
		if loc != nil {
			uc.loc = loc
		}
	}
}

// WithDefaultSource selects the source used for g when a query names none.
func WithDefaultSource(g models.Granularity, name string) SeriesOption {
	return func(uc *SeriesViewUseCase) { uc.defaults[g] = name }
}

// WithTracker enables last-request-wins handling for queries with a session.
func WithTracker(t *ViewTracker) SeriesOption {
	return func(uc *SeriesViewUseCase) { uc.tracker = t }
}

// WithSeriesLogger sets the logger.
func WithSeriesLogger(l *applogger.Logger) SeriesOption {
	return func(uc *SeriesViewUseCase) {
		if l != nil {
			uc.l = l
		}
	}
}

// WithSeriesMetrics sets the metrics recorder.
func WithSeriesMetrics(m domrepo.Metrics) SeriesOption {
	return func(uc *SeriesViewUseCase) { uc.metrics = m }
}

// SeriesViewUseCase fetches records from a source and runs them through the
// series engine, one fetch per quantity.
type SeriesViewUseCase struct {
	engine   *series.Engine
	sources  map[string]domrepo.Source
	defaults map[models.Granularity]string
	tracker  *ViewTracker
	metrics  domrepo.Metrics
	l        *applogger.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewSeriesViewUseCase(engine *series.Engine, sources []domrepo.Source, opts ...SeriesOption) *SeriesViewUseCase {
	uc := &SeriesViewUseCase{
		engine:  engine,
		sources: make(map[string]domrepo.Source, len(sources)),
		defaults: map[models.Granularity]string{
			models.GranularityHourly: "remote",
			models.GranularityDaily:  "flatfile",
		},
		l:   applogger.Nop(),
		loc: time.UTC,
		now: time.Now,
	}
	for _, s := range sources {
		uc.sources[s.Name()] = s
	}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

// Series returns one output. A source failure yields a cleared output
// carrying the error message together with an error wrapping
// domrepo.ErrSourceUnavailable.
func (uc *SeriesViewUseCase) Series(ctx context.Context, q SeriesQuery) (models.Output, error) {
	if !q.Quantity.Valid() {
		return models.Output{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, q.Quantity)
	}
	src, b, err := uc.prepare(q.Granularity, q.Window, q.Source)
	if err != nil {
		return models.Output{}, err
	}

	ctx, tk, err := uc.begin(ctx, q.Session)
	if err != nil {
		return models.Output{}, err
	}
	out, runErr := uc.run(ctx, src, q.Granularity, b, q.Quantity, q.RealOnlyStats)
	if err := uc.finish(ctx, tk); err != nil {
		return models.Output{}, err
	}
	return out, runErr
}

// View computes every requested quantity concurrently over a single window.
// Per-quantity source failures are reported inside that quantity's output.
func (uc *SeriesViewUseCase) View(ctx context.Context, q ViewQuery) (map[models.Quantity]models.Output, error) {
	if len(q.Quantities) == 0 {
		return nil, fmt.Errorf("%w: none requested", ErrInvalidQuantity)
	}
	for _, qty := range q.Quantities {
		if !qty.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidQuantity, qty)
		}
	}
	src, b, err := uc.prepare(q.Granularity, q.Window, q.Source)
	if err != nil {
		return nil, err
	}

	ctx, tk, err := uc.begin(ctx, q.Session)
	if err != nil {
		return nil, err
	}

	type item struct {
		qty models.Quantity
		out models.Output
	}
	items := make(chan item, len(q.Quantities))
	var wg sync.WaitGroup
	for _, qty := range q.Quantities {
		wg.Add(1)
		go func(qty models.Quantity) {
			defer wg.Done()
			out, _ := uc.run(ctx, src, q.Granularity, b, qty, q.RealOnlyStats)
			items <- item{qty: qty, out: out}
		}(qty)
	}
	wg.Wait()
	close(items)

	views := make(map[models.Quantity]models.Output, len(q.Quantities))
	for it := range items {
		views[it.qty] = it.out
	}
	if err := uc.finish(ctx, tk); err != nil {
		return nil, err
	}
	return views, nil
}

func (uc *SeriesViewUseCase) prepare(g models.Granularity, w models.WindowSpec, name string) (domrepo.Source, models.Boundary, error) {
	if !g.Valid() {
		return nil, models.Boundary{}, fmt.Errorf("%w: unknown granularity %q", series.ErrInvalidWindow, g)
	}
	if name == "" {
		name = uc.defaults[g]
	}
	src, ok := uc.sources[name]
	if !ok {
		return nil, models.Boundary{}, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	b, err := series.Resolve(g, w, uc.now().In(uc.loc))
	if err != nil {
		return nil, models.Boundary{}, err
	}
	return src, b, nil
}

func (uc *SeriesViewUseCase) begin(ctx context.Context, session string) (context.Context, *Ticket, error) {
	if session == "" || uc.tracker == nil {
		return ctx, nil, nil
	}
	reqCtx, tk, err := uc.tracker.Begin(ctx, session)
	if err != nil {
		return ctx, nil, err
	}
	return reqCtx, &tk, nil
}

func (uc *SeriesViewUseCase) finish(ctx context.Context, tk *Ticket) error {
	if tk == nil {
		return nil
	}
	// the request context may already be cancelled by a newer request
	return uc.tracker.Finish(context.WithoutCancel(ctx), *tk)
}

func (uc *SeriesViewUseCase) run(ctx context.Context, src domrepo.Source, g models.Granularity, b models.Boundary, qty models.Quantity, realOnly bool) (models.Output, error) {
	if b.Empty {
		return models.EmptyOutput(), nil
	}
	start := time.Now()
	recs, err := src.Fetch(ctx, b)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordError("source")
		}
		uc.l.Error("series fetch failed",
			applogger.String("source", src.Name()),
			applogger.String("granularity", string(g)),
			applogger.String("quantity", string(qty)),
			applogger.Error(err),
		)
		return models.FailedOutput(err), err
	}

	res := uc.engine.Run(series.Input{
		Granularity:   g,
		Boundary:      b,
		Measures:      qty.Measures(),
		Records:       recs,
		RealOnlyStats: realOnly,
	})
	if uc.metrics != nil && res.Synthesized > 0 {
		uc.metrics.RecordSynthesized(string(g), res.Synthesized)
	}
	uc.l.Debug("series computed",
		applogger.String("source", src.Name()),
		applogger.String("granularity", string(g)),
		applogger.String("window", string(b.Lookback)),
		applogger.String("quantity", string(qty)),
		applogger.Int("records", len(recs)),
		applogger.Int("matched", res.Matched),
		applogger.Int("skipped", res.Skipped),
		applogger.Int("synthesized", res.Synthesized),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res.Output(), nil
}
