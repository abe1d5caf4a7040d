// internal/service/billing/infrastructure/redis_guard.go
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"stockbridge/internal/pkg/redis"
	"stockbridge/internal/service/billing/domain/port"
)

const idempotencyKeyPrefix = "billing:sale:request:"

// RedisRequestGuard 用 Redis SetNX 实现跨实例的销售请求幂等闸门。
// TTL 过期后同一请求 id 允许重放，这是刻意的：闸门挡的是短时间内的
// 重复提交和重试风暴，不是永久去重。
type RedisRequestGuard struct {
	client *redis.Client
	ttl    time.Duration
}

var _ port.RequestGuard = (*RedisRequestGuard)(nil)

func NewRedisRequestGuard(client *redis.Client, ttl time.Duration) *RedisRequestGuard {
	return &RedisRequestGuard{client: client, ttl: ttl}
}

func (g *RedisRequestGuard) Claim(ctx context.Context, requestID string) (bool, error) {
	ok, err := g.client.SetIdempotency(ctx, idempotencyKeyPrefix+requestID, g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim request id %s: %w", requestID, err)
	}
	return ok, nil
}

func (g *RedisRequestGuard) Release(ctx context.Context, requestID string) error {
	return g.client.ReleaseIdempotency(ctx, idempotencyKeyPrefix+requestID)
}
