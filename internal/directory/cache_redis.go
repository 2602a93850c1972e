package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "call:directory:user:"

// CachedDirectory is a read-through redis cache in front of another Directory.
// Cache failures degrade to the inner directory; they never fail a lookup.
type CachedDirectory struct {
	inner Directory
	rdb   *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedDirectory(inner Directory, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedDirectory {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedDirectory{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func (d *CachedDirectory) GetUser(ctx context.Context, userID string) (User, error) {
	key := cacheKeyPrefix + userID

	if raw, err := d.rdb.Get(ctx, key).Bytes(); err == nil {
		var u User
		if err := json.Unmarshal(raw, &u); err == nil {
			return u, nil
		}
		// Corrupt entry: drop it and fall through to the inner lookup.
		_ = d.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn("directory cache read failed", "err", err, "user_id", userID)
	}

	u, err := d.inner.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}

	if raw, err := json.Marshal(u); err == nil {
		if err := d.rdb.Set(ctx, key, raw, d.ttl).Err(); err != nil {
			d.log.Warn("directory cache write failed", "err", err, "user_id", userID)
		}
	}
	return u, nil
}
