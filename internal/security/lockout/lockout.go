// Package lockout tracks consecutive failed credential checks per identity
// and temporarily bans identities that cross the failure threshold.
package lockout

import (
	"context"
	"log/slog"
	"time"

	"github.com/aBasicDream/tc/internal/platform/cache"
)

const (
	counterPrefix = "login:count:"
	lockoutPrefix = "blacklist:"
)

// Guard enforces the credential-throttling policy. The threshold and window
// are fixed at construction; they are configuration, not runtime state.
type Guard struct {
	cache     cache.Cache
	threshold int64
	window    time.Duration
	logger    *slog.Logger
}

func NewGuard(c cache.Cache, threshold int64, window time.Duration, logger *slog.Logger) *Guard {
	return &Guard{cache: c, threshold: threshold, window: window, logger: logger}
}

// RecordFailure increments the identity's failure counter, refreshing its
// sliding TTL, and creates the lockout entry once the threshold is reached.
// The counter is left in place to expire naturally. Returns the new count.
func (g *Guard) RecordFailure(ctx context.Context, identity string) (int64, error) {
	n, err := g.cache.Increment(ctx, counterPrefix+identity, g.window)
	if err != nil {
		return 0, err
	}
	if n >= g.threshold {
		if err := g.Lockout(ctx, identity); err != nil {
			return n, err
		}
		g.logger.Warn("identity locked out after repeated failures",
			"identity", identity,
			"failures", n,
		)
	}
	return n, nil
}

// RecordSuccess clears the failure counter. It is an idempotent no-op when
// no counter exists.
func (g *Guard) RecordSuccess(ctx context.Context, identity string) error {
	return g.cache.Delete(ctx, counterPrefix+identity)
}

// Failures returns the identity's current consecutive-failure count.
func (g *Guard) Failures(ctx context.Context, identity string) (int64, error) {
	return g.cache.Counter(ctx, counterPrefix+identity)
}

// IsLockedOut reports whether the identity is currently banned. A present
// lockout entry supersedes any credential check.
func (g *Guard) IsLockedOut(ctx context.Context, identity string) (bool, error) {
	return g.cache.Exists(ctx, lockoutPrefix+identity)
}

// Lockout bans the identity for the lockout window.
func (g *Guard) Lockout(ctx context.Context, identity string) error {
	return g.cache.Set(ctx, lockoutPrefix+identity, identity, g.window)
}
