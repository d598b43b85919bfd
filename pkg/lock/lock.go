// Package lock provides short-lived exclusive leases held in process or in
// Redis, so periodic jobs run on one replica at a time.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotHeld = errors.New("lock: not held")

// Locker hands out leases that expire after ttl unless released first.
type Locker interface {
	// TryLock returns the lease token and true when the lease was acquired.
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	// Unlock releases the lease if token still owns it.
	Unlock(ctx context.Context, key, token string) error
}

func newToken() string { return uuid.NewString() }
