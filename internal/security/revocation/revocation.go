// Package revocation maintains the token denylist. Entries are written on
// logout with a TTL equal to the token's remaining lifetime, so a revocation
// never outlives the token it blocks.
package revocation

import (
	"context"
	"log/slog"
	"time"

	"github.com/aBasicDream/tc/internal/platform/cache"
)

const keyPrefix = "blacklist:"

type Store struct {
	cache  cache.Cache
	logger *slog.Logger
}

func NewStore(c cache.Cache, logger *slog.Logger) *Store {
	return &Store{cache: c, logger: logger}
}

// Revoke denylists the token string itself for ttl. The owner identity is
// stored as the value for operator forensics.
func (s *Store) Revoke(ctx context.Context, token, owner string, ttl time.Duration) error {
	if ttl <= 0 {
		// Nothing to block: the token is already past its expiry.
		return nil
	}
	return s.cache.Set(ctx, keyPrefix+token, owner, ttl)
}

// IsRevoked reports whether the token is denylisted. A cache failure is
// treated as "not revoked": every caller still runs full signature and
// expiry verification, so the token's own expiry remains the backstop. The
// failure is logged as a residual risk.
func (s *Store) IsRevoked(ctx context.Context, token string) bool {
	ok, err := s.cache.Exists(ctx, keyPrefix+token)
	if err != nil {
		s.logger.Error("revocation lookup failed, treating token as not revoked", "error", err)
		return false
	}
	return ok
}
