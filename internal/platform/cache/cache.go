// Package cache defines the small capability surface the authentication
// pipeline needs from a shared key/value store: get, set-with-ttl, atomic
// increment, existence checks, and a named lock with a lease. Any store with
// atomic increment and lock-with-lease support can satisfy it; Redis and an
// in-memory implementation are provided.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("cache: key not found")

	// ErrLockNotAcquired is returned by TryLock when the wait bound elapses
	// before the lock becomes free.
	ErrLockNotAcquired = errors.New("cache: lock not acquired")
)

// Cache is the sole dependency surface between this core and the external
// cache collaborator. All cross-instance coordination happens through it.
type Cache interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. A ttl of zero means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Increment atomically increments the integer at key and returns the new
	// value. A non-zero ttl (re)sets the key expiry on every call, giving the
	// counter a sliding window.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Counter returns the integer at key, or 0 when absent.
	Counter(ctx context.Context, key string) (int64, error)

	// TryLock acquires the named lock within wait, holding it for at most
	// lease before automatic release. Returns ErrLockNotAcquired when the
	// wait bound elapses.
	TryLock(ctx context.Context, name string, wait, lease time.Duration) (Unlocker, error)
}

// Unlocker releases a held lock.
type Unlocker interface {
	Unlock(ctx context.Context) error
}

// WithLock runs fn while holding the named lock, releasing it on every exit
// path. The lease must exceed fn's worst-case execution time; if fn overruns
// it the lock may be granted to a second caller, which is accepted in favor
// of liveness.
func WithLock(ctx context.Context, c Cache, name string, wait, lease time.Duration, fn func(ctx context.Context) error) error {
	lock, err := c.TryLock(ctx, name, wait, lease)
	if err != nil {
		return err
	}
	defer func() {
		// Release failures are not surfaced: the lease bounds the damage.
		_ = lock.Unlock(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
