package models

import (
	"time"

	"PowerPull/pkg/util"
)

// Lookback is a named window token.
type Lookback string

const (
	Lookback1D     Lookback = "1d"
	Lookback5D     Lookback = "5d"
	Lookback7D     Lookback = "7d"
	Lookback30D    Lookback = "30d"
	Lookback180D   Lookback = "180d"
	Lookback365D   Lookback = "365d"
	LookbackAll    Lookback = "all"
	LookbackCustom Lookback = "custom"
)

// WindowSpec is a requested range: a lookback token, or LookbackCustom with
// an explicit inclusive From/To pair.
type WindowSpec struct {
	Lookback Lookback
	From     time.Time
	To       time.Time
}

// Boundary is a resolved inclusive range of civil dates.
type Boundary struct {
	Lookback Lookback
	From     time.Time
	To       time.Time
	// Days is the token day count; zero for custom and all.
	Days int
	// Open drops the lower bound; To still applies.
	Open bool
	// Empty marks a custom window whose end precedes its start.
	Empty bool
}

// Contains reports whether the civil date d lies inside the boundary.
func (b Boundary) Contains(d time.Time) bool {
	if b.Empty {
		return false
	}
	d = util.CivilDate(d)
	if b.Open {
		return !d.After(b.To)
	}
	return !d.Before(b.From) && !d.After(b.To)
}
