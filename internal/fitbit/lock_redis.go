package fitbit

import (
	"context"
	"fmt"
	"time"

	commonredis "github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/redis"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisRefreshLocker 基于 SETNX 的刷新锁
type RedisRefreshLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ RefreshLocker = (*RedisRefreshLocker)(nil)

// NewRedisRefreshLocker 创建刷新锁，ttl 需覆盖一次令牌端点调用
func NewRedisRefreshLocker(client *redis.Client, ttl time.Duration) *RedisRefreshLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisRefreshLocker{client: client, ttl: ttl, prefix: "fitbit:refresh:"}
}

// TryLock 获取设备刷新锁
func (l *RedisRefreshLocker) TryLock(ctx context.Context, deviceID int64) (func(), bool, error) {
	key := fmt.Sprintf("%s%d", l.prefix, deviceID)
	owner := uuid.NewString()
	ok, err := commonredis.AcquireLock(ctx, l.client, key, owner, l.ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// 使用独立 context：调用方 ctx 可能已取消
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = commonredis.ReleaseLock(releaseCtx, l.client, key, owner)
	}
	return release, true, nil
}
