// internal/pkg/redis/mutex.go
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired 表示在等待窗口内没有抢到锁。
var ErrLockNotAcquired = errors.New("redis mutex: lock not acquired within wait window")

const unlockScriptName = "mutex_unlock"

// 只有锁的持有者才能删除锁，避免误删他人在锁过期后重新获取的锁。
const unlockScript = `
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
else
    return 0
end
`

// Mutex 是基于 SetNX + TTL 的分布式互斥锁。
// 它只用于防止同一业务键的重复提交互相竞争，不做公平性保证；
// TTL 即自动释放时间，防止持有者崩溃后锁被永久占用。
type Mutex struct {
	client *Client
	key    string
	token  string
	wait   time.Duration
	ttl    time.Duration
}

// NewMutex 创建一把以 key 为粒度的互斥锁。
func NewMutex(client *Client, key string, wait, ttl time.Duration) *Mutex {
	_ = client.LoadScriptFromContent(unlockScriptName, unlockScript)
	return &Mutex{
		client: client,
		key:    "mutex:{" + key + "}",
		token:  uuid.New().String(),
		wait:   wait,
		ttl:    ttl,
	}
}

// Lock 在 wait 窗口内轮询抢锁，抢不到返回 ErrLockNotAcquired。
// 拿不到锁不阻塞业务线程太久，由调用方决定重试或直接报"系统繁忙"。
func (m *Mutex) Lock(ctx context.Context) error {
	deadline := time.Now().Add(m.wait)
	for {
		ok, err := m.client.rdb.SetNX(ctx, m.key, m.token, m.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Unlock 释放锁。锁已过期或被他人持有时是安全的 no-op。
func (m *Mutex) Unlock(ctx context.Context) error {
	_, err := m.client.RunScript(ctx, unlockScriptName, []string{m.key}, m.token)
	return err
}
