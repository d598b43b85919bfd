package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	"PowerPull/internal/services/snapshot"
	applogger "PowerPull/pkg/logger"
)

// RemoteSource reads records from the snapshot store. Malformed rows are
// dropped and counted; a store failure becomes ErrSourceUnavailable.
type RemoteSource struct {
	reader  domrepo.SnapshotReader
	mapper  *snapshot.Mapper
	metrics domrepo.Metrics
	l       *applogger.Logger
}

var _ domrepo.Source = (*RemoteSource)(nil)

func NewRemoteSource(reader domrepo.SnapshotReader, metrics domrepo.Metrics, l *applogger.Logger) *RemoteSource {
	return &RemoteSource{reader: reader, mapper: snapshot.NewMapper(false), metrics: metrics, l: l}
}

func (s *RemoteSource) Name() string { return "remote" }

func (s *RemoteSource) Fetch(ctx context.Context, b models.Boundary) ([]models.RawRecord, error) {
	start := time.Now()
	rows, err := s.reader.Query(ctx, b)
	if s.metrics != nil {
		s.metrics.RecordFetch(s.Name(), time.Since(start).Seconds(), err)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domrepo.ErrSourceUnavailable, err)
	}

	out := make([]models.RawRecord, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		rec, err := s.mapper.Map(row)
		if err != nil {
			dropped++
			if s.l != nil {
				s.l.Debug("remote row dropped", applogger.Error(err))
			}
			continue
		}
		out = append(out, rec)
	}
	if s.metrics != nil {
		s.metrics.RecordRows(s.Name(), len(out), dropped)
	}
	if dropped > 0 && s.l != nil {
		s.l.Warn("remote rows dropped",
			applogger.Int("accepted", len(out)),
			applogger.Int("dropped", dropped),
		)
	}
	return out, nil
}
