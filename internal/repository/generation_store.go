package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "PowerPull/internal/domain/repository"
)

type generation struct {
	n    uint64
	seen time.Time
}

// MemoryGenerationStore keeps session generations in process. Sessions idle
// for longer than idleTTL are evicted on the next sweep, matching the expiry
// of the Redis store.
type MemoryGenerationStore struct {
	mu      sync.Mutex
	gens    map[string]*generation
	idleTTL time.Duration
	now     func() time.Time
	lastGC  time.Time
}

var _ domrepo.GenerationStore = (*MemoryGenerationStore)(nil)

func NewMemoryGenerationStore(idleTTL time.Duration) *MemoryGenerationStore {
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	return &MemoryGenerationStore{gens: make(map[string]*generation), idleTTL: idleTTL, now: time.Now}
}

// WithClock replaces time.Now; used by tests.
func (m *MemoryGenerationStore) WithClock(now func() time.Time) *MemoryGenerationStore {
	m.now = now
	return m
}

func (m *MemoryGenerationStore) Next(_ context.Context, session string) (uint64, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep(now)
	g, ok := m.gens[session]
	if !ok {
		g = &generation{}
		m.gens[session] = g
	}
	g.n++
	g.seen = now
	return g.n, nil
}

func (m *MemoryGenerationStore) Current(_ context.Context, session string) (uint64, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep(now)
	g, ok := m.gens[session]
	if !ok {
		return 0, nil
	}
	return g.n, nil
}

// Len returns the number of tracked sessions.
func (m *MemoryGenerationStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.gens)
}

func (m *MemoryGenerationStore) sweep(now time.Time) {
	if now.Sub(m.lastGC) < m.idleTTL {
		return
	}
	m.lastGC = now
	for k, g := range m.gens {
		if now.Sub(g.seen) > m.idleTTL {
			delete(m.gens, k)
		}
	}
}

// RedisGenerationStore shares session generations across replicas.
// Keys expire after ttl of inactivity.
type RedisGenerationStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ domrepo.GenerationStore = (*RedisGenerationStore)(nil)

func NewRedisGenerationStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisGenerationStore {
	if prefix == "" {
		prefix = "powerpull"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisGenerationStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisGenerationStore) key(session string) string {
	return fmt.Sprintf("%s:view:gen:%s", r.prefix, session)
}

func (r *RedisGenerationStore) Next(ctx context.Context, session string) (uint64, error) {
	key := r.key(session)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("next generation: %w", err)
	}
	return uint64(incr.Val()), nil
}

func (r *RedisGenerationStore) Current(ctx context.Context, session string) (uint64, error) {
	v, err := r.client.Get(ctx, r.key(session)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current generation: %w", err)
	}
	return v, nil
}
