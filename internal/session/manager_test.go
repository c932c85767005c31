package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"im-social/internal/config"
	"im-social/internal/views"
)

func newTestManager(e *env, ttl time.Duration) *Manager {
	return NewManager(e.friends, e.groups, config.RefreshConfig{MaxConcurrency: 2, SessionIdleTTL: ttl}, zap.NewNop())
}

func TestManager_OpenGetClose(t *testing.T) {
	e := newEnv(t, 2)
	m := newTestManager(e, 0)
	ctx := context.Background()

	s := m.Open(ctx, 1)
	assert.False(t, s.Snapshot().RefreshedAt.IsZero(), "Open refreshes a new session")
	assert.Same(t, s, m.Open(ctx, 1))

	got, ok := m.Get(1)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	m.Close(1)
	_, ok = m.Get(1)
	assert.False(t, ok)
}

func TestManager_RefreshUsers(t *testing.T) {
	e := newEnv(t, 3)
	m := newTestManager(e, 0)
	ctx := context.Background()
	s2 := m.Open(ctx, 2)

	_, err := e.friends.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// 用户 1 和 3 没有会话，直接忽略
	require.NoError(t, m.RefreshUsers(ctx, 1, 2, 3))
	_, p, ok := s2.Snapshot().Friends.Find(1)
	require.True(t, ok)
	assert.Equal(t, views.PartitionIncoming, p)
	assert.Equal(t, 1, m.Len())
}

func TestManager_RefreshAll(t *testing.T) {
	e := newEnv(t, 4)
	m := newTestManager(e, 0)
	ctx := context.Background()
	for id := uint(1); id <= 4; id++ {
		m.Open(ctx, id)
	}

	g, err := e.groups.CreateGroup(ctx, 1, "all")
	require.NoError(t, err)
	for id := uint(2); id <= 4; id++ {
		require.NoError(t, e.groups.InviteUser(ctx, 1, id, g.ID))
	}

	require.NoError(t, m.RefreshAll(ctx))
	for id := uint(2); id <= 4; id++ {
		s, _ := m.Get(id)
		assert.Len(t, s.Snapshot().Groups.Invited, 1, "user %d", id)
	}
}

func TestManager_RunRefreshesUntilCancelled(t *testing.T) {
	e := newEnv(t, 2)
	m := newTestManager(e, 0)
	ctx, cancel := context.WithCancel(context.Background())
	s1 := m.Open(ctx, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Run(ctx, 10*time.Millisecond)
	}()

	_, err := e.friends.SendRequest(context.Background(), 2, 1)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, p, ok := s1.Snapshot().Friends.Find(2)
		return ok && p == views.PartitionIncoming
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestManager_EvictsIdleSessions(t *testing.T) {
	e := newEnv(t, 2)
	m := newTestManager(e, time.Minute)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}
	ctx := context.Background()

	m.Open(ctx, 1)
	m.Open(ctx, 2)
	advance(45 * time.Second)
	// 用户操作会刷新活跃时间，Tick 不会
	s2, _ := m.Get(2)
	require.NoError(t, s2.Dispatch(ctx, CreateGroup{Name: "busy"}))
	s1, _ := m.Get(1)
	require.NoError(t, s1.Refresh(ctx))

	advance(30 * time.Second)
	m.pass(ctx)

	_, ok := m.Get(1)
	assert.False(t, ok, "idle session evicted")
	_, ok = m.Get(2)
	assert.True(t, ok)
}
