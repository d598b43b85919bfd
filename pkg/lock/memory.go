package lock

import (
	"context"
	"sync"
	"time"
)

type lease struct {
	token    string
	expireAt time.Time
}

// MemoryLocker implements Locker for a single process.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

var _ Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]lease), now: time.Now}
}

// WithClock replaces time.Now; used by tests.
func (m *MemoryLocker) WithClock(now func() time.Time) *MemoryLocker {
	m.now = now
	return m
}

func (m *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cur, ok := m.leases[key]; ok && now.Before(cur.expireAt) {
		return "", false, nil
	}
	token := newToken()
	m.leases[key] = lease{token: token, expireAt: now.Add(ttl)}
	return token, true, nil
}

func (m *MemoryLocker) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.leases[key]
	if !ok || cur.token != token {
		return ErrNotHeld
	}
	delete(m.leases, key)
	return nil
}
