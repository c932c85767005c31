package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-social/internal/apperrors"
	"im-social/internal/models"
	"im-social/internal/services"
	"im-social/internal/storage"
	"im-social/internal/testutil"
	"im-social/internal/views"
)

type env struct {
	db      *gorm.DB
	friends services.FriendService
	groups  services.GroupService
}

func newEnv(t *testing.T, users int) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.CreateUsers(t, db, users)
	userRepo := storage.NewGormUserRepository(db)
	log := zap.NewNop()
	return &env{
		db:      db,
		friends: services.NewFriendService(userRepo, storage.NewGormFriendRelationRepository(db), nil, log),
		groups:  services.NewGroupService(db, storage.NewGormGroupRepository(db), userRepo, nil, log),
	}
}

func (e *env) session(t *testing.T, userID uint) *Session {
	t.Helper()
	s := New(userID, e.friends, e.groups, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))
	return s
}

func partitionOf(t *testing.T, s *Session, userID uint) views.Partition {
	t.Helper()
	_, p, ok := s.Snapshot().Friends.Find(userID)
	require.True(t, ok, "user %d not in view", userID)
	return p
}

func TestSession_FriendFlow(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()
	s1 := e.session(t, 1)
	s2 := e.session(t, 2)

	require.NoError(t, s1.Dispatch(ctx, SendFriendRequest{Target: 2}))
	assert.Equal(t, views.PartitionOutgoing, partitionOf(t, s1, 2))
	assert.Contains(t, s1.Snapshot().Status.Info, "User B")

	// 对方的视图在刷新前不变
	assert.Equal(t, views.PartitionUnrelated, partitionOf(t, s2, 1))
	require.NoError(t, s2.Dispatch(ctx, Tick{}))
	assert.Equal(t, views.PartitionIncoming, partitionOf(t, s2, 1))

	require.NoError(t, s2.Dispatch(ctx, AcceptFriendRequest{From: 1}))
	assert.Equal(t, views.PartitionFriends, partitionOf(t, s2, 1))

	snap := s2.Snapshot()
	require.Len(t, snap.InviteCandidates, 1)
	assert.Equal(t, uint(1), snap.InviteCandidates[0].ID)

	require.NoError(t, s1.Refresh(ctx))
	assert.Equal(t, views.PartitionFriends, partitionOf(t, s1, 2))

	require.NoError(t, s1.Dispatch(ctx, RemoveFriend{Friend: 2}))
	assert.Equal(t, views.PartitionUnrelated, partitionOf(t, s1, 2))
	require.NoError(t, s2.Refresh(ctx))
	assert.Equal(t, views.PartitionUnrelated, partitionOf(t, s2, 1))
}

func TestSession_FailedSendRollsBack(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	s1 := e.session(t, 1)

	// 对方已经发来请求，但本会话尚未刷新
	_, err := e.friends.SendRequest(ctx, 2, 1)
	require.NoError(t, err)

	err = s1.Dispatch(ctx, SendFriendRequest{Target: 2})
	require.ErrorIs(t, err, apperrors.ErrAlreadyRelated)
	assert.Equal(t, views.PartitionUnrelated, partitionOf(t, s1, 2))
	assert.NotEmpty(t, s1.Snapshot().Status.Error)

	require.NoError(t, s1.Refresh(ctx))
	assert.Equal(t, views.PartitionIncoming, partitionOf(t, s1, 2))
}

func TestSession_DeclineAndRetract(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()
	_, err := e.friends.SendRequest(ctx, 2, 1)
	require.NoError(t, err)
	_, err = e.friends.SendRequest(ctx, 1, 3)
	require.NoError(t, err)

	s1 := e.session(t, 1)
	assert.Equal(t, views.PartitionIncoming, partitionOf(t, s1, 2))
	assert.Equal(t, views.PartitionOutgoing, partitionOf(t, s1, 3))

	require.NoError(t, s1.Dispatch(ctx, DeclineFriendRequest{From: 2}))
	require.NoError(t, s1.Dispatch(ctx, RetractFriendRequest{Target: 3}))
	snap := s1.Snapshot()
	assert.ElementsMatch(t, []uint{2, 3}, userIDs(snap.Friends.Unrelated))

	// 已删除的记录再次删除失败，视图保持不变
	err = s1.Dispatch(ctx, RetractFriendRequest{Target: 3})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, views.PartitionUnrelated, partitionOf(t, s1, 3))
}

func TestSession_GroupFlow(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	s1 := e.session(t, 1)
	s2 := e.session(t, 2)

	require.NoError(t, s1.Dispatch(ctx, CreateGroup{Name: "readers"}))
	snap := s1.Snapshot()
	require.Len(t, snap.Groups.Member, 1)
	gid := snap.Groups.Member[0].ID

	assert.ErrorIs(t, s1.Dispatch(ctx, CreateGroup{Name: ""}), apperrors.ErrValidation)
	assert.Len(t, s1.Snapshot().Groups.Member, 1)

	require.NoError(t, s1.Dispatch(ctx, InviteToGroup{GroupID: gid, Target: 2}))
	require.NoError(t, s2.Refresh(ctx))
	require.Len(t, s2.Snapshot().Groups.Invited, 1)

	require.NoError(t, s2.Dispatch(ctx, AcceptGroupInvite{GroupID: gid}))
	snap = s2.Snapshot()
	assert.Empty(t, snap.Groups.Invited)
	assert.Equal(t, []uint{gid}, groupIDs(snap.Groups.Member))

	require.NoError(t, s1.Dispatch(ctx, LeaveGroup{GroupID: gid}))
	assert.Empty(t, s1.Snapshot().Groups.Member)
	require.NoError(t, s2.Dispatch(ctx, LeaveGroup{GroupID: gid}))
	assert.Contains(t, s2.Snapshot().Status.Info, "被删除")

	_, err := e.groups.GetGroup(ctx, gid)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSession_AcceptInviteNotYetInView(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	s2 := e.session(t, 2)

	// 群组和邀请都在 s2 最近一次刷新之后产生
	g, err := e.groups.CreateGroup(ctx, 1, "late")
	require.NoError(t, err)
	require.NoError(t, e.groups.InviteUser(ctx, 1, 2, g.ID))
	require.Empty(t, s2.Snapshot().Groups.Invited)

	require.NoError(t, s2.Dispatch(ctx, AcceptGroupInvite{GroupID: g.ID}))
	snap := s2.Snapshot()
	assert.Empty(t, snap.Groups.Invited)
	assert.Equal(t, []uint{g.ID}, groupIDs(snap.Groups.Member))
	assert.Contains(t, snap.Status.Info, "late")
}

func TestSession_SendRequestToUserNotInView(t *testing.T) {
	e := newEnv(t, 1)
	ctx := context.Background()
	s1 := e.session(t, 1)
	require.Empty(t, s1.Snapshot().Friends.Unrelated)

	newcomer := models.User{FirstName: "New", LastName: "Comer", Email: "newcomer@example.com", PasswordHash: "x"}
	require.NoError(t, e.db.Create(&newcomer).Error)

	require.NoError(t, s1.Dispatch(ctx, SendFriendRequest{Target: newcomer.ID}))
	snap := s1.Snapshot()
	assert.Equal(t, []uint{newcomer.ID}, userIDs(snap.Friends.Outgoing))
	assert.Empty(t, snap.Friends.Unrelated)
	assert.Contains(t, snap.Status.Info, "New")
}

func TestSession_FailedAcceptInviteRollsBack(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	g, err := e.groups.CreateGroup(ctx, 1, "g")
	require.NoError(t, err)
	require.NoError(t, e.groups.InviteUser(ctx, 1, 2, g.ID))

	s2 := e.session(t, 2)
	// 邀请在会话刷新之后被撤销
	_, err = e.groups.DeclineInvite(ctx, 2, g.ID)
	require.NoError(t, err)

	require.ErrorIs(t, s2.Dispatch(ctx, AcceptGroupInvite{GroupID: g.ID}), apperrors.ErrNotFound)
	assert.Equal(t, []uint{g.ID}, groupIDs(s2.Snapshot().Groups.Invited))

	require.NoError(t, s2.Refresh(ctx))
	assert.Empty(t, s2.Snapshot().Groups.Invited)
}

// flakyFriends 在 fail 为 true 时让刷新失败。
type flakyFriends struct {
	services.FriendService
	fail bool
}

func (f *flakyFriends) Reconcile(ctx context.Context, self uint) (views.FriendView, error) {
	if f.fail {
		return views.FriendView{}, apperrors.Storage("list relations", errors.New("connection refused"))
	}
	return f.FriendService.Reconcile(ctx, self)
}

func TestSession_TickKeepsPreviousViewOnFailure(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	friends := &flakyFriends{FriendService: e.friends}
	s := New(1, friends, e.groups, zap.NewNop())
	require.NoError(t, s.Refresh(ctx))
	before := s.Snapshot()
	require.Len(t, before.Friends.Unrelated, 1)

	_, err := e.groups.CreateGroup(ctx, 1, "g")
	require.NoError(t, err)

	friends.fail = true
	err = s.Refresh(ctx)
	require.ErrorIs(t, err, apperrors.ErrStorage)

	after := s.Snapshot()
	assert.Equal(t, before.Friends, after.Friends)
	assert.Equal(t, before.RefreshedAt, after.RefreshedAt)
	// 群组一侧仍然刷新
	assert.Len(t, after.Groups.Member, 1)
	assert.Contains(t, after.Status.Error, "connection refused")
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	e := newEnv(t, 2)
	s := e.session(t, 1)

	snap := s.Snapshot()
	require.Len(t, snap.Friends.Unrelated, 1)
	snap.Friends.Unrelated[0].FirstName = "mutated"
	assert.NotEqual(t, "mutated", s.Snapshot().Friends.Unrelated[0].FirstName)
}

func userIDs(list []models.UserBasicInfo) []uint {
	out := make([]uint, 0, len(list))
	for _, u := range list {
		out = append(out, u.ID)
	}
	return out
}

func groupIDs(list []models.Group) []uint {
	out := make([]uint, 0, len(list))
	for _, g := range list {
		out = append(out, g.ID)
	}
	return out
}
