package usecase

import (
	"context"
	"sync"

	"PowerPull/internal/domain/models"
)

type fakeSource struct {
	name string
	recs []models.RawRecord
	err  error

	mu    sync.Mutex
	calls int
	// blockFirst holds the first Fetch until its context is cancelled.
	blockFirst bool
	started    chan struct{}
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(ctx context.Context, _ models.Boundary) ([]models.RawRecord, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.blockFirst && n == 1 {
		if s.started != nil {
			close(s.started)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.recs, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeMetrics struct {
	mu          sync.Mutex
	superseded  int
	synthesized int
	ingest      map[string]int
	errors      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{ingest: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordFetch(string, float64, error) {}
func (m *fakeMetrics) RecordRows(string, int, int)        {}

func (m *fakeMetrics) RecordSynthesized(_ string, n int) {
	m.mu.Lock()
	m.synthesized += n
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordSuperseded() {
	m.mu.Lock()
	m.superseded++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordIngest(result string, n int) {
	m.mu.Lock()
	m.ingest[result] += n
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

type fakeWriter struct {
	mu   sync.Mutex
	err  error
	rows []models.SnapshotRow
}

func (w *fakeWriter) InsertBatch(_ context.Context, rows []models.SnapshotRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, rows...)
	return nil
}

func ptr(s string) *string { return &s }

func f64(v float64) *float64 { return &v }
