package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	"PowerPull/internal/repository"
	"PowerPull/internal/services/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func testEngine() *series.Engine {
	return series.NewEngine(series.Options{
		Convention:    series.HourBeginning,
		Policy:        series.PolicyPartial,
		BaselinePrice: 4000,
		Jitter:        0.05,
		DailyJitter:   0.03,
		Seed:          11,
	})
}

func dayRecords(d time.Time) []models.RawRecord {
	recs := make([]models.RawRecord, 0, 24)
	for h := 1; h <= 24; h++ {
		recs = append(recs, models.RawRecord{
			Date:        d,
			Slot:        models.HourSlot{Hour: h},
			Price:       f64(float64(100 * h)),
			PurchaseBid: f64(1000),
			SellBid:     f64(900),
		})
	}
	return recs
}

func newUseCase(t *testing.T, sources []domrepo.Source, opts ...SeriesOption) *SeriesViewUseCase {
	t.Helper()
	// 20:00 UTC on 30 June is already 1 July in the market zone
	now := time.Date(2025, 6, 30, 20, 0, 0, 0, time.UTC)
	base := []SeriesOption{WithClock(func() time.Time { return now }), WithLocation(ist)}
	return NewSeriesViewUseCase(testEngine(), sources, append(base, opts...)...)
}

func TestSeriesHourlyUsesRemoteByDefault(t *testing.T) {
	d := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	remote := &fakeSource{name: "remote", recs: dayRecords(d)}
	flat := &fakeSource{name: "flatfile"}
	uc := newUseCase(t, []domrepo.Source{remote, flat})

	out, err := uc.Series(context.Background(), SeriesQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback1D},
		Quantity:    models.QuantityPrice,
	})
	require.NoError(t, err)
	require.Len(t, out.Series, 24)
	assert.Equal(t, 1, remote.callCount())
	assert.Zero(t, flat.callCount())
	assert.Nil(t, out.Error)

	st := out.Stats[models.MeasurePrice]
	require.NotNil(t, st)
	assert.Equal(t, 2400.0, st.Max)
	assert.Equal(t, "23:00", st.MaxTimeKey.String())
}

func TestSeriesDailyUsesFlatFileByDefault(t *testing.T) {
	remote := &fakeSource{name: "remote"}
	flat := &fakeSource{name: "flatfile", recs: dayRecords(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))}
	uc := newUseCase(t, []domrepo.Source{remote, flat})

	out, err := uc.Series(context.Background(), SeriesQuery{
		Granularity: models.GranularityDaily,
		Window:      models.WindowSpec{Lookback: models.Lookback1D},
		Quantity:    models.QuantityPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, flat.callCount())
	assert.Zero(t, remote.callCount())
	require.NotEmpty(t, out.Series)
	last := out.Series[len(out.Series)-1]
	assert.Equal(t, "01 Jul 2025", last.TimeKey.String())
	assert.Equal(t, 1250.0, last.Values[models.MeasurePrice])
}

func TestSeriesSourceOverride(t *testing.T) {
	remote := &fakeSource{name: "remote"}
	flat := &fakeSource{name: "flatfile"}
	uc := newUseCase(t, []domrepo.Source{remote, flat})

	_, err := uc.Series(context.Background(), SeriesQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback7D},
		Quantity:    models.QuantityPrice,
		Source:      "flatfile",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, flat.callCount())
	assert.Zero(t, remote.callCount())
}

func TestSeriesSourceFailureClearsOutput(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", domrepo.ErrSourceUnavailable)
	m := newFakeMetrics()
	uc := newUseCase(t, []domrepo.Source{&fakeSource{name: "remote", err: cause}}, WithSeriesMetrics(m))

	out, err := uc.Series(context.Background(), SeriesQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback1D},
		Quantity:    models.QuantityPrice,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domrepo.ErrSourceUnavailable))
	assert.Empty(t, out.Series)
	assert.NotNil(t, out.Series)
	assert.Nil(t, out.Stats)
	require.NotNil(t, out.Error)
	assert.Contains(t, *out.Error, "connection refused")
	assert.Equal(t, 1, m.errors["source"])
}

func TestSeriesRejectsBadQueries(t *testing.T) {
	uc := newUseCase(t, []domrepo.Source{&fakeSource{name: "remote"}})
	ctx := context.Background()

	_, err := uc.Series(ctx, SeriesQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback5D},
		Quantity:    models.QuantityPrice,
	})
	assert.ErrorIs(t, err, series.ErrInvalidWindow)

	_, err = uc.Series(ctx, SeriesQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback1D},
		Quantity:    models.QuantityPrice,
		Source:      "nowhere",
	})
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = uc.Series(ctx, SeriesQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback1D},
		Quantity:    models.Quantity("temperature"),
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSeriesEmptyCustomWindowSkipsFetch(t *testing.T) {
	remote := &fakeSource{name: "remote"}
	uc := newUseCase(t, []domrepo.Source{remote})

	out, err := uc.Series(context.Background(), SeriesQuery{
		Granularity: models.GranularityHourly,
		Window: models.WindowSpec{
			Lookback: models.LookbackCustom,
			From:     time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC),
			To:       time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		Quantity: models.QuantityPrice,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Series)
	assert.Zero(t, remote.callCount())
}

func TestViewComputesEveryQuantity(t *testing.T) {
	remote := &fakeSource{name: "remote", recs: dayRecords(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))}
	uc := newUseCase(t, []domrepo.Source{remote})

	views, err := uc.View(context.Background(), ViewQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback1D},
		Quantities:  []models.Quantity{models.QuantityPrice, models.QuantityBids},
	})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Len(t, views[models.QuantityPrice].Series, 24)
	bids := views[models.QuantityBids]
	require.Len(t, bids.Series, 24)
	assert.Equal(t, 1000.0, bids.Series[0].Values[models.MeasurePurchaseBid])
	assert.Equal(t, 900.0, bids.Series[0].Values[models.MeasureSellBid])
	assert.Equal(t, 2, remote.callCount())
}

func TestViewRequiresQuantities(t *testing.T) {
	uc := newUseCase(t, []domrepo.Source{&fakeSource{name: "remote"}})
	_, err := uc.View(context.Background(), ViewQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback1D},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSeriesNewerRequestSupersedesOlder(t *testing.T) {
	started := make(chan struct{})
	remote := &fakeSource{
		name:       "remote",
		recs:       dayRecords(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		blockFirst: true,
		started:    started,
	}
	m := newFakeMetrics()
	tracker := NewViewTracker(repository.NewMemoryGenerationStore(0), m)
	uc := newUseCase(t, []domrepo.Source{remote}, WithTracker(tracker))

	q := SeriesQuery{
		Granularity: models.GranularityHourly,
		Window:      models.WindowSpec{Lookback: models.Lookback1D},
		Quantity:    models.QuantityPrice,
		Session:     "tab-1",
	}
	firstErr := make(chan error, 1)
	go func() {
		_, err := uc.Series(context.Background(), q)
		firstErr <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first request never reached the source")
	}

	out, err := uc.Series(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, out.Series, 24)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first request was not cancelled")
	}
	assert.Equal(t, 1, m.superseded)
}
