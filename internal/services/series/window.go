package series

import (
	"errors"
	"fmt"
	"time"

	"PowerPull/internal/domain/models"
	"PowerPull/pkg/util"
)

// ErrInvalidWindow is returned for tokens outside a granularity's vocabulary
// and for custom windows without both ends.
var ErrInvalidWindow = errors.New("invalid window")

// Epoch predates every dataset; "all" windows start here.
var Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var lookbackDays = map[models.Granularity]map[models.Lookback]int{
	models.GranularityHourly: {
		models.Lookback1D:  1,
		models.Lookback7D:  7,
		models.Lookback30D: 30,
	},
	models.GranularityDaily: {
		models.Lookback1D:   1,
		models.Lookback5D:   5,
		models.Lookback30D:  30,
		models.Lookback180D: 180,
		models.Lookback365D: 365,
	},
}

// LookbackDays returns the day count of a fixed token for granularity g.
func LookbackDays(g models.Granularity, l models.Lookback) (int, bool) {
	n, ok := lookbackDays[g][l]
	return n, ok
}

// Supports reports whether l belongs to the vocabulary of g.
func Supports(g models.Granularity, l models.Lookback) bool {
	if l == models.LookbackCustom {
		return g.Valid()
	}
	if l == models.LookbackAll {
		return g == models.GranularityDaily
	}
	_, ok := LookbackDays(g, l)
	return ok
}

// Resolve turns a window spec into an inclusive civil-date boundary.
// now is taken in the market's location; only its calendar date matters.
func Resolve(g models.Granularity, spec models.WindowSpec, now time.Time) (models.Boundary, error) {
	if !Supports(g, spec.Lookback) {
		return models.Boundary{}, fmt.Errorf("%w: %q is not a %s window", ErrInvalidWindow, spec.Lookback, g)
	}
	today := util.CivilDate(now)

	switch spec.Lookback {
	case models.LookbackAll:
		return models.Boundary{Lookback: spec.Lookback, From: Epoch, To: today, Open: true}, nil
	case models.LookbackCustom:
		if spec.From.IsZero() || spec.To.IsZero() {
			return models.Boundary{}, fmt.Errorf("%w: custom window needs from and to", ErrInvalidWindow)
		}
		b := models.Boundary{
			Lookback: spec.Lookback,
			From:     util.CivilDate(spec.From),
			To:       util.CivilDate(spec.To),
		}
		b.Empty = b.To.Before(b.From)
		return b, nil
	default:
		n, _ := LookbackDays(g, spec.Lookback)
		return models.Boundary{
			Lookback: spec.Lookback,
			From:     util.AddDays(today, -n),
			To:       today,
			Days:     n,
		}, nil
	}
}
