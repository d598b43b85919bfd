package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	applogger "PowerPull/pkg/logger"
)

// ErrBufferFull is returned by Add when the pending buffer is at capacity.
var ErrBufferFull = errors.New("ingest buffer full")

// IngestBatcher sits between the ingest consumer and the snapshot store.
// Rows are written in batches when batchSize rows are pending or every
// flushInterval. When the store fails the batch is put back in front of the
// queue and the next attempt waits with exponential backoff.
type IngestBatcher struct {
	writer  domrepo.SnapshotWriter
	metrics domrepo.Metrics
	l       *applogger.Logger

	batchSize     int
	flushInterval time.Duration
	maxBuffer     int
	backoffMin    time.Duration
	backoffMax    time.Duration

	mu      sync.Mutex
	pending []models.SnapshotRow
	kick    chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	started bool
}

type BatcherOption func(*IngestBatcher)

// WithBatchSize sets the rows per store write.
func WithBatchSize(n int) BatcherOption {
	return func(b *IngestBatcher) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithFlushInterval sets the longest a row waits before a write is attempted.
func WithFlushInterval(d time.Duration) BatcherOption {
	return func(b *IngestBatcher) {
		if d > 0 {
			b.flushInterval = d
		}
	}
}

// WithMaxBuffer caps pending rows kept while the store is unavailable.
func WithMaxBuffer(n int) BatcherOption {
	return func(b *IngestBatcher) {
		if n > 0 {
			b.maxBuffer = n
		}
	}
}

// WithBackoff sets the retry delay range after a failed write.
func WithBackoff(min, max time.Duration) BatcherOption {
	return func(b *IngestBatcher) {
		if min > 0 {
			b.backoffMin = min
		}
		if max >= b.backoffMin {
			b.backoffMax = max
		}
	}
}

func WithBatcherLogger(l *applogger.Logger) BatcherOption {
	return func(b *IngestBatcher) { b.l = l }
}

func NewIngestBatcher(writer domrepo.SnapshotWriter, metrics domrepo.Metrics, opts ...BatcherOption) *IngestBatcher {
	b := &IngestBatcher{
		writer:        writer,
		metrics:       metrics,
		batchSize:     500,
		flushInterval: 2 * time.Second,
		maxBuffer:     50000,
		backoffMin:    50 * time.Millisecond,
		backoffMax:    2 * time.Second,
		kick:          make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.l == nil {
		b.l = applogger.Nop()
	}
	return b
}

// Add queues rows for writing. It never blocks on the store.
func (b *IngestBatcher) Add(rows ...models.SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}
	b.mu.Lock()
	if len(b.pending)+len(rows) > b.maxBuffer {
		b.mu.Unlock()
		b.recordIngest("buffer_full", len(rows))
		return ErrBufferFull
	}
	b.pending = append(b.pending, rows...)
	full := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Pending returns the number of rows not yet written.
func (b *IngestBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Start launches the background writer.
func (b *IngestBatcher) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go b.loop(ctx)
}

func (b *IngestBatcher) loop(ctx context.Context) {
	defer close(b.done)
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	backoff := b.backoffMin
	for {
		// a tick drains everything, a kick only full batches
		drain := false
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			drain = true
		case <-b.kick:
		}

		for {
			pending := b.Pending()
			if pending == 0 || (!drain && pending < b.batchSize) {
				break
			}
			if err := b.flushOnce(ctx); err != nil {
				b.l.Warn("ingest flush failed, retrying",
					applogger.Int("pending", pending),
					applogger.Duration("backoff_ms", backoff),
					applogger.Error(err),
				)
				select {
				case <-time.After(backoff):
				case <-b.stopCh:
					return
				case <-ctx.Done():
					return
				}
				backoff = min(backoff*2, b.backoffMax)
				continue
			}
			backoff = b.backoffMin
		}
	}
}

// flushOnce writes at most one batch.
func (b *IngestBatcher) flushOnce(ctx context.Context) error {
	b.mu.Lock()
	n := min(len(b.pending), b.batchSize)
	if n == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := make([]models.SnapshotRow, n)
	copy(batch, b.pending[:n])
	b.pending = b.pending[n:]
	b.mu.Unlock()

	if err := b.writer.InsertBatch(ctx, batch); err != nil {
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		b.mu.Unlock()
		b.recordIngest("retry", n)
		if b.metrics != nil {
			b.metrics.RecordError("ingest_flush")
		}
		return err
	}
	b.recordIngest("written", n)
	return nil
}

// Stop ends the background loop and writes what is still pending.
func (b *IngestBatcher) Stop(ctx context.Context) error {
	b.mu.Lock()
	started := b.started
	b.started = false
	b.mu.Unlock()
	if started {
		close(b.stopCh)
		select {
		case <-b.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for b.Pending() > 0 {
		if err := b.flushOnce(ctx); err != nil {
			lost := b.Pending()
			b.l.Error("ingest rows lost on shutdown", applogger.Int("rows", lost), applogger.Error(err))
			b.recordIngest("lost", lost)
			return err
		}
	}
	return nil
}

func (b *IngestBatcher) recordIngest(result string, rows int) {
	if b.metrics != nil {
		b.metrics.RecordIngest(result, rows)
	}
}
