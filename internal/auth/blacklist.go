package auth

import (
	"context"
	"sync"
	"time"
)

// TokenBlacklist 定义了 Token 黑名单的存储操作接口
type TokenBlacklist interface {
	// Add 将 jti 加入黑名单，并使其在 Token 的原始过期时间点之后自动从黑名单中移除。
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	// IsBlacklisted 检查 jti 是否存在于黑名单中。
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// memoryBlacklist 在未启用 Redis 时使用，仅对单进程有效。
type memoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryBlacklist returns a process-local TokenBlacklist.
func NewMemoryBlacklist() TokenBlacklist {
	return &memoryBlacklist{entries: make(map[string]time.Time), now: time.Now}
}

func (m *memoryBlacklist) Add(_ context.Context, jti string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !exp.After(now) {
		return nil
	}
	// 顺便清理已过期的条目
	for k, e := range m.entries {
		if !e.After(now) {
			delete(m.entries, k)
		}
	}
	m.entries[jti] = exp
	return nil
}

func (m *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[jti]
	return ok && exp.After(m.now()), nil
}
