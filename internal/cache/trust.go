package cache

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/posfleet/station-gateway/internal/redis"
)

// commands is the slice of the redis API the trust cache needs. *redis.Client
// satisfies it; tests substitute a fake.
type commands interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// TrustCache caches station trust flags for at most ttl. Entries are written
// through on every authenticated read and deleted synchronously on
// untrust/transfer, so a revoked station is rejected on its very next request;
// the ttl only bounds staleness if an invalidation is lost entirely.
type TrustCache struct {
	client commands
	ttl    time.Duration
}

func NewTrustCache(client commands, ttl time.Duration) *TrustCache {
	return &TrustCache{client: client, ttl: ttl}
}

// Get returns the cached trust flag. ok is false on miss or redis failure;
// the caller falls through to the database.
func (c *TrustCache) Get(ctx context.Context, stationID string) (trusted bool, ok bool) {
	val, err := c.client.Get(ctx, redis.TrustKey(stationID)).Result()
	if err != nil {
		if err != goredis.Nil {
			log.Warn().Err(err).Str("stationId", stationID).Msg("trust cache read failed")
		}
		return false, false
	}
	return val == "1", true
}

// Set records the trust flag with the bounded TTL. Failures are logged and
// swallowed: the cache is an optimization, the database stays authoritative.
func (c *TrustCache) Set(ctx context.Context, stationID string, trusted bool) {
	val := "0"
	if trusted {
		val = "1"
	}
	if err := c.client.Set(ctx, redis.TrustKey(stationID), val, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("stationId", stationID).Msg("trust cache write failed")
	}
}

// Invalidate removes the cached flag. Unlike Set, failures propagate: an
// untrust/transfer must not report success while a stale trusted entry could
// still be served.
func (c *TrustCache) Invalidate(ctx context.Context, stationID string) error {
	return c.client.Del(ctx, redis.TrustKey(stationID)).Err()
}
