package repository

import (
	"context"
	"errors"

	"PowerPull/internal/domain/models"
)

// ErrSourceUnavailable wraps every failure to read a backing store.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source fetches raw records for a resolved window. Implementations may
// filter server-side or return everything and leave filtering to the caller.
type Source interface {
	Name() string
	Fetch(ctx context.Context, b models.Boundary) ([]models.RawRecord, error)
}

// SnapshotReader reads native snapshot rows.
type SnapshotReader interface {
	Query(ctx context.Context, b models.Boundary) ([]models.SnapshotRow, error)
}

// SnapshotWriter upserts native snapshot rows.
type SnapshotWriter interface {
	InsertBatch(ctx context.Context, rows []models.SnapshotRow) error
}

// SnapshotStore is the tabular market snapshot relation.
type SnapshotStore interface {
	SnapshotReader
	SnapshotWriter
	Init(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// GenerationStore issues per-session request generations.
type GenerationStore interface {
	// Next increments and returns the session generation.
	Next(ctx context.Context, session string) (uint64, error)
	// Current returns the latest generation issued for the session.
	Current(ctx context.Context, session string) (uint64, error)
}

type Metrics interface {
	RecordFetch(source string, seconds float64, err error)
	RecordRows(source string, accepted, dropped int)
	RecordSynthesized(granularity string, buckets int)
	RecordSuperseded()
	RecordIngest(result string, rows int)
	RecordError(kind string)
}
