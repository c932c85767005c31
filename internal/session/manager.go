package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"im-social/internal/config"
	"im-social/internal/services"
)

// Manager 持有所有在线用户的会话，并驱动定时刷新。
type Manager struct {
	friends        services.FriendService
	groups         services.GroupService
	log            *zap.Logger
	maxConcurrency int
	idleTTL        time.Duration
	now            func() time.Time

	mu       sync.RWMutex
	sessions map[uint]*Session
}

// NewManager 创建 Manager。cfg.SessionIdleTTL 为 0 时不回收空闲会话。
func NewManager(friends services.FriendService, groups services.GroupService, cfg config.RefreshConfig, log *zap.Logger) *Manager {
	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}
	return &Manager{
		friends:        friends,
		groups:         groups,
		log:            log.Named("session"),
		maxConcurrency: limit,
		idleTTL:        cfg.SessionIdleTTL,
		now:            time.Now,
		sessions:       make(map[uint]*Session),
	}
}

// Open 返回用户的会话，不存在时创建并立即刷新一次。
// 首次刷新失败不会阻止会话创建，错误记录在会话状态中。
func (m *Manager) Open(ctx context.Context, userID uint) *Session {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = newSession(userID, m.friends, m.groups, m.log, m.now)
		m.sessions[userID] = sess
	}
	m.mu.Unlock()

	if ok {
		sess.touch()
		return sess
	}
	if err := sess.Refresh(ctx); err != nil {
		m.log.Warn("新会话首次刷新失败", zap.Uint("user", userID), zap.Error(err))
	}
	m.log.Debug("会话已打开", zap.Uint("user", userID))
	return sess
}

func (m *Manager) Get(userID uint) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	return sess, ok
}

func (m *Manager) Close(userID uint) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RefreshUsers 刷新指定用户中已打开的会话，未在线的用户被忽略。
func (m *Manager) RefreshUsers(ctx context.Context, userIDs ...uint) error {
	var errs []error
	for _, id := range userIDs {
		sess, ok := m.Get(id)
		if !ok {
			continue
		}
		if err := sess.Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshAll 以有限并发刷新所有会话，等待全部完成后返回。
// 单个会话的失败只记录日志，不影响其他会话。
func (m *Manager) RefreshAll(ctx context.Context) error {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var failed sync.Map
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxConcurrency)
	for _, sess := range sessions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := sess.Refresh(gctx); err != nil {
				failed.Store(sess.UserID(), err)
			}
			return nil
		})
	}
	err := g.Wait()

	failed.Range(func(k, v any) bool {
		m.log.Warn("会话刷新失败", zap.Uint("user", k.(uint)), zap.Error(v.(error)))
		return true
	})
	return err
}

// Run 按固定间隔刷新，直到 ctx 结束。上一轮未完成时不会开始下一轮。
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.log.Info("会话刷新已启动", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			m.log.Info("会话刷新已停止")
			return
		case <-ticker.C:
			m.pass(ctx)
		}
	}
}

func (m *Manager) pass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("会话刷新 panic", zap.Any("recover", r))
		}
	}()
	m.evictIdle()
	if err := m.RefreshAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.log.Warn("会话刷新中断", zap.Error(err))
	}
}

func (m *Manager) evictIdle() {
	if m.idleTTL <= 0 {
		return
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			m.log.Debug("回收空闲会话", zap.Uint("user", id))
		}
	}
}
