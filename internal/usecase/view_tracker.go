package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domrepo "PowerPull/internal/domain/repository"
)

// ErrSuperseded reports that a newer request for the same view session
// started before this one finished. Its result must not be shown.
var ErrSuperseded = errors.New("superseded by a newer request")

// Ticket identifies one request within a view session.
type Ticket struct {
	Session    string
	Generation uint64
}

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// ViewTracker makes the last request per session win. Begin cancels the
// local in-flight request of the session; Finish rejects any request whose
// generation is no longer current, which also covers requests started on
// other replicas when the generation store is shared.
type ViewTracker struct {
	gens    domrepo.GenerationStore
	metrics domrepo.Metrics

	mu      sync.Mutex
	running map[string]inflight
}

func NewViewTracker(gens domrepo.GenerationStore, metrics domrepo.Metrics) *ViewTracker {
	return &ViewTracker{gens: gens, metrics: metrics, running: make(map[string]inflight)}
}

// Begin registers a new request for session and returns its context.
func (t *ViewTracker) Begin(ctx context.Context, session string) (context.Context, Ticket, error) {
	gen, err := t.gens.Next(ctx, session)
	if err != nil {
		return ctx, Ticket{}, fmt.Errorf("begin view request: %w", err)
	}
	reqCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if prev, ok := t.running[session]; ok && prev.gen < gen {
		prev.cancel()
	}
	t.running[session] = inflight{gen: gen, cancel: cancel}
	t.mu.Unlock()

	return reqCtx, Ticket{Session: session, Generation: gen}, nil
}

// Finish releases the request and returns ErrSuperseded when it is stale.
func (t *ViewTracker) Finish(ctx context.Context, tk Ticket) error {
	t.mu.Lock()
	if cur, ok := t.running[tk.Session]; ok && cur.gen == tk.Generation {
		delete(t.running, tk.Session)
		cur.cancel()
	}
	t.mu.Unlock()

	current, err := t.gens.Current(ctx, tk.Session)
	if err != nil {
		return fmt.Errorf("finish view request: %w", err)
	}
	if current != tk.Generation {
		if t.metrics != nil {
			t.metrics.RecordSuperseded()
		}
		return ErrSuperseded
	}
	return nil
}
