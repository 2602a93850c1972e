package signaling

import (
	"context"
	"time"

	"voicecall-engine/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "call:signal:seen:"

// RedisDeduper claims message ids in redis so that redelivery across agent
// restarts (or a future multi-instance deployment) stays idempotent.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, id string) (bool, error) {
	return utils.ClaimOnce(ctx, d.rdb, dedupKeyPrefix+id, d.ttl)
}
