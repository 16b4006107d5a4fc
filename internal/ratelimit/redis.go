package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisLimiter 基于 Redis 的登录限流器，多实例部署时共享计数
type RedisLimiter struct {
	rdb *goredis.Client
	cfg Config
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(rdb *goredis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, cfg: cfg}
}

var _ LoginLimiter = (*RedisLimiter)(nil)

func failKey(key string) string  { return "login:fail:" + key }
func blockKey(key string) string { return "login:block:" + key }

// Check 查询封禁状态
func (l *RedisLimiter) Check(ctx context.Context, key string) (bool, time.Duration, error) {
	ttl, err := l.rdb.TTL(ctx, blockKey(key)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("check login block: %w", err)
	}
	// TTL 为负表示键不存在或无过期时间
	if ttl > 0 {
		return true, ttl, nil
	}
	return false, 0, nil
}

// RecordFailure 记录一次登录失败
func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	fk := failKey(key)

	count, err := l.rdb.Incr(ctx, fk).Result()
	if err != nil {
		return fmt.Errorf("incr login failures: %w", err)
	}
	// 首次失败时设置窗口过期，后续失败沿用同一窗口
	if count == 1 {
		if err := l.rdb.Expire(ctx, fk, l.cfg.Window).Err(); err != nil {
			return fmt.Errorf("expire login failures: %w", err)
		}
	}

	if count >= int64(l.cfg.MaxFails) {
		if err := l.rdb.Set(ctx, blockKey(key), "1", l.cfg.BlockTTL).Err(); err != nil {
			return fmt.Errorf("set login block: %w", err)
		}
	}
	return nil
}

// Reset 清除失败计数与封禁标记
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, failKey(key), blockKey(key)).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}
