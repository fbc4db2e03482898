package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// releaseScript 仅当值匹配时删除，防止释放他人持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock SETNX 获取带 TTL 的锁，返回是否获取成功
func AcquireLock(ctx context.Context, client *redis.Client, key, owner string, ttl time.Duration) (bool, error) {
	return client.SetNX(ctx, key, owner, ttl).Result()
}

// ReleaseLock 释放锁
func ReleaseLock(ctx context.Context, client *redis.Client, key, owner string) error {
	err := releaseScript.Run(ctx, client, []string{key}, owner).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}
