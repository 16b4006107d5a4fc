// Package ratelimit 实现登录失败限流。
//
// 失败计数按 "ip:username" 维度累计，窗口内失败达到上限后封禁一段时间，
// 登录成功时清除计数。提供进程内与 Redis 两种存储。
package ratelimit

import (
	"context"
	"time"
)

// LoginLimiter 登录限流器
type LoginLimiter interface {
	// Check 查询该维度是否处于封禁状态，返回剩余封禁时间
	Check(ctx context.Context, key string) (blocked bool, retryAfter time.Duration, err error)
	// RecordFailure 记录一次登录失败，窗口内达到上限时进入封禁
	RecordFailure(ctx context.Context, key string) error
	// Reset 登录成功后清除该维度的失败计数
	Reset(ctx context.Context, key string) error
}

// Config 限流参数
type Config struct {
	Window   time.Duration // 失败计数窗口
	MaxFails int           // 窗口内允许的失败次数
	BlockTTL time.Duration // 超限后的封禁时长
}
