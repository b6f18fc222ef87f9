// internal/service/order/infrastructure/redis_locker.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"mall/internal/pkg/logger"
	"mall/internal/pkg/redis"
	"mall/internal/service/order/domain"
)

// RedisShopperLocker 用 Redis SetNX 互斥锁实现 application.ShopperLocker。
// 同一买家的下单请求串行化，等待窗口内抢不到锁视为重复提交。
type RedisShopperLocker struct {
	client *redis.Client
	wait   time.Duration
	ttl    time.Duration
}

func NewRedisShopperLocker(client *redis.Client, wait, ttl time.Duration) *RedisShopperLocker {
	return &RedisShopperLocker{client: client, wait: wait, ttl: ttl}
}

func (l *RedisShopperLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := redis.NewMutex(l.client, key, l.wait, l.ttl)
	if err := mutex.Lock(ctx); err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return domain.ErrDuplicateSubmission
		}
		return err
	}
	defer func() {
		if err := mutex.Unlock(ctx); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to release mutex")
		}
	}()
	return fn(ctx)
}
