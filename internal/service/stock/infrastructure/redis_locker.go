// internal/service/stock/infrastructure/redis_locker.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"mall/internal/pkg/logger"
	"mall/internal/pkg/redis"
	"mall/internal/service/stock/domain"
)

// RedisOrderLocker 用 Redis SetNX 互斥锁实现 application.OrderLocker。
// 等待窗口内抢不到锁返回 domain.ErrLockTimeout（调用方可重试）；
// TTL 是自动释放时间，防止持有者崩溃后锁死。
type RedisOrderLocker struct {
	client *redis.Client
	wait   time.Duration
	ttl    time.Duration
}

func NewRedisOrderLocker(client *redis.Client, wait, ttl time.Duration) *RedisOrderLocker {
	return &RedisOrderLocker{client: client, wait: wait, ttl: ttl}
}

func (l *RedisOrderLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := redis.NewMutex(l.client, key, l.wait, l.ttl)
	if err := mutex.Lock(ctx); err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return domain.ErrLockTimeout
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
