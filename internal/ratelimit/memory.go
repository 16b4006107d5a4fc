package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	fails        int
	windowExpiry time.Time
	blockExpiry  time.Time // 零值表示未封禁
}

// MemoryLimiter 进程内登录限流器
//
// 每个条目都带过期时间，读写路径上惰性淘汰，写入累计到阈值后再做一次
// 整表清理，保证长时间运行下 map 不会无限增长。
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	cfg     Config

	writesSinceSweep int
	now              func() time.Time // 测试注入
}

// NewMemoryLimiter 创建进程内限流器
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		cfg:     cfg,
		now:     time.Now,
	}
}

var _ LoginLimiter = (*MemoryLimiter)(nil)

const sweepThreshold = 1024

// Check 查询封禁状态
func (l *MemoryLimiter) Check(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok {
		return false, 0, nil
	}
	if !entry.blockExpiry.IsZero() && now.Before(entry.blockExpiry) {
		return true, entry.blockExpiry.Sub(now), nil
	}
	if l.expired(entry, now) {
		delete(l.entries, key)
	}
	return false, 0, nil
}

// RecordFailure 记录一次登录失败
func (l *MemoryLimiter) RecordFailure(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || l.expired(entry, now) {
		entry = &memoryEntry{windowExpiry: now.Add(l.cfg.Window)}
		l.entries[key] = entry
	}

	entry.fails++
	if entry.fails >= l.cfg.MaxFails {
		entry.blockExpiry = now.Add(l.cfg.BlockTTL)
	}

	l.writesSinceSweep++
	if l.writesSinceSweep >= sweepThreshold {
		l.sweep(now)
	}
	return nil
}

// Reset 清除失败计数
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

// expired 判断条目是否已整体过期（窗口与封禁都已结束）
func (l *MemoryLimiter) expired(entry *memoryEntry, now time.Time) bool {
	if !entry.blockExpiry.IsZero() && now.Before(entry.blockExpiry) {
		return false
	}
	return !now.Before(entry.windowExpiry) &&
		(entry.blockExpiry.IsZero() || !now.Before(entry.blockExpiry))
}

// sweep 清理过期条目，调用方持有锁
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, entry := range l.entries {
		if l.expired(entry, now) {
			delete(l.entries, key)
		}
	}
	l.writesSinceSweep = 0
}
