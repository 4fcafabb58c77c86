// Package stats maintains time-bucketed counters for login and token
// validation outcomes. Increments are fire-and-forget: statistics are
// advisory and must never block or fail the request they describe.
package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/aBasicDream/tc/internal/platform/cache"
)

const (
	statsPrefix         = "security:stats:"
	loginSuccessPrefix  = "login:success:"
	loginFailedPrefix   = "login:failed:"
	tokenValidatePrefix = "token:validate:"
	blacklistHitPrefix  = "blacklist:hit:"

	dayLayout  = "2006-01-02"
	hourLayout = "2006-01-02-15"
)

// Collector increments day/hour/per-user/per-origin counters in the shared
// cache. Counters rely on the cache's atomic increment; no ordering guarantee
// is needed because plain counters are commutative.
type Collector struct {
	cache  cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewCollector(c cache.Cache, logger *slog.Logger) *Collector {
	return &Collector{cache: c, logger: logger, now: time.Now}
}

// SetClock replaces the time source used for bucketing.
func (c *Collector) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Collector) RecordLoginSuccess(ctx context.Context, username, clientIP string) {
	day, hour := c.buckets()
	c.increment(ctx,
		statsPrefix+loginSuccessPrefix+day,
		statsPrefix+loginSuccessPrefix+hour,
		statsPrefix+loginSuccessPrefix+"user:"+username,
		statsPrefix+loginSuccessPrefix+"ip:"+clientIP,
	)
}

func (c *Collector) RecordLoginFailed(ctx context.Context, username, clientIP, reason string) {
	day, hour := c.buckets()
	c.increment(ctx,
		statsPrefix+loginFailedPrefix+day,
		statsPrefix+loginFailedPrefix+hour,
		statsPrefix+loginFailedPrefix+"user:"+username,
		statsPrefix+loginFailedPrefix+"ip:"+clientIP,
	)
	c.logger.Warn("login failed", "username", username, "client_ip", clientIP, "reason", reason)
}

func (c *Collector) RecordTokenValidateSuccess(ctx context.Context, username, clientIP string) {
	day, hour := c.buckets()
	c.increment(ctx,
		statsPrefix+tokenValidatePrefix+"success:"+day,
		statsPrefix+tokenValidatePrefix+"success:"+hour,
		statsPrefix+tokenValidatePrefix+"success:user:"+username,
		statsPrefix+tokenValidatePrefix+"success:ip:"+clientIP,
	)
}

func (c *Collector) RecordTokenValidateFailed(ctx context.Context, clientIP, reason string) {
	day, hour := c.buckets()
	c.increment(ctx,
		statsPrefix+tokenValidatePrefix+"failed:"+day,
		statsPrefix+tokenValidatePrefix+"failed:"+hour,
		statsPrefix+tokenValidatePrefix+"failed:ip:"+clientIP,
	)
	c.logger.Warn("token validation failed", "client_ip", clientIP, "reason", reason)
}

func (c *Collector) RecordBlacklistHit(ctx context.Context, clientIP string) {
	day, hour := c.buckets()
	c.increment(ctx,
		statsPrefix+blacklistHitPrefix+day,
		statsPrefix+blacklistHitPrefix+hour,
		statsPrefix+blacklistHitPrefix+"ip:"+clientIP,
	)
}

// Snapshot holds today's counters for the reporting surface.
type Snapshot struct {
	LoginSuccess         int64 `json:"loginSuccessCount"`
	LoginFailed          int64 `json:"loginFailedCount"`
	TokenValidateSuccess int64 `json:"tokenValidateSuccessCount"`
	TokenValidateFailed  int64 `json:"tokenValidateFailedCount"`
	BlacklistHits        int64 `json:"blacklistHitCount"`
}

// TodaySnapshot reads the day-bucketed counters.
func (c *Collector) TodaySnapshot(ctx context.Context) (Snapshot, error) {
	day := c.now().Format(dayLayout)

	var snap Snapshot
	for _, read := range []struct {
		key string
		dst *int64
	}{
		{statsPrefix + loginSuccessPrefix + day, &snap.LoginSuccess},
		{statsPrefix + loginFailedPrefix + day, &snap.LoginFailed},
		{statsPrefix + tokenValidatePrefix + "success:" + day, &snap.TokenValidateSuccess},
		{statsPrefix + tokenValidatePrefix + "failed:" + day, &snap.TokenValidateFailed},
		{statsPrefix + blacklistHitPrefix + day, &snap.BlacklistHits},
	} {
		n, err := c.cache.Counter(ctx, read.key)
		if err != nil {
			return Snapshot{}, err
		}
		*read.dst = n
	}
	return snap, nil
}

func (c *Collector) buckets() (day, hour string) {
	now := c.now()
	return now.Format(dayLayout), now.Format(hourLayout)
}

// increment bumps each counter, logging and swallowing failures.
func (c *Collector) increment(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if _, err := c.cache.Increment(ctx, key, 0); err != nil {
			c.logger.Error("stat increment failed", "key", key, "error", err)
		}
	}
}
