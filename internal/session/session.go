// Package session 为每个在线用户维护物化的好友/群组视图。
// 用户操作先乐观地修改视图再写存储，失败时回滚；定时刷新以存储为准整体替换视图。
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"im-social/internal/models"
	"im-social/internal/services"
	"im-social/internal/views"
)

// Status 是展示给用户的最近一次操作结果。
type Status struct {
	Info  string `json:"info,omitempty"`
	Error string `json:"error,omitempty"`
}

// Snapshot 是会话状态的深拷贝。
type Snapshot struct {
	UserID  uint            `json:"userId"`
	Friends views.FriendView `json:"friends"`
	Groups  views.GroupView  `json:"groups"`
	// InviteCandidates 是可以被邀请进群的用户，即已接受的好友。
	InviteCandidates []models.UserBasicInfo `json:"inviteCandidates"`
	Status           Status                 `json:"status"`
	RefreshedAt      time.Time              `json:"refreshedAt"`
}

// Session 串行处理单个用户的事件。
type Session struct {
	userID  uint
	friends services.FriendService
	groups  services.GroupService
	log     *zap.Logger
	now     func() time.Time

	mu          sync.Mutex
	friendView  views.FriendView
	groupView   views.GroupView
	status      Status
	refreshedAt time.Time
	lastActive  time.Time
}

// New 创建一个空视图的会话，调用方应随后派发 Tick。
func New(userID uint, friends services.FriendService, groups services.GroupService, log *zap.Logger) *Session {
	return newSession(userID, friends, groups, log, time.Now)
}

func newSession(userID uint, friends services.FriendService, groups services.GroupService, log *zap.Logger, now func() time.Time) *Session {
	return &Session{
		userID:     userID,
		friends:    friends,
		groups:     groups,
		log:        log.With(zap.Uint("session", userID)),
		now:        now,
		lastActive: now(),
	}
}

func (s *Session) UserID() uint { return s.userID }

// Dispatch 处理一个事件。返回的错误同时写入 Status.Error。
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, isTick := ev.(Tick); !isTick {
		s.lastActive = s.now()
	}

	var err error
	switch e := ev.(type) {
	case SendFriendRequest:
		err = s.sendFriendRequest(ctx, e)
	case AcceptFriendRequest:
		err = s.acceptFriendRequest(ctx, e)
	case DeclineFriendRequest:
		err = s.dropRelation(ctx, e.From, "已拒绝 %s 的好友请求", s.friends.DeclineRequest)
	case RemoveFriend:
		err = s.dropRelation(ctx, e.Friend, "已删除好友 %s", s.friends.RemoveFriend)
	case RetractFriendRequest:
		err = s.dropRelation(ctx, e.Target, "已撤回发给 %s 的好友请求", s.friends.RetractRequest)
	case CreateGroup:
		err = s.createGroup(ctx, e)
	case InviteToGroup:
		err = s.inviteToGroup(ctx, e)
	case AcceptGroupInvite:
		err = s.acceptGroupInvite(ctx, e)
	case DeclineGroupInvite:
		err = s.leaveGroup(ctx, e.GroupID, s.groups.DeclineInvite, "已拒绝群组邀请")
	case LeaveGroup:
		err = s.leaveGroup(ctx, e.GroupID, s.groups.LeaveGroup, "已退出群组")
	case Tick:
		err = s.tick(ctx)
	default:
		err = fmt.Errorf("未知事件类型 %T", ev)
	}

	if err != nil {
		s.status = Status{Error: err.Error()}
	}
	return err
}

// Refresh 等价于 Dispatch(ctx, Tick{})。
func (s *Session) Refresh(ctx context.Context) error {
	return s.Dispatch(ctx, Tick{})
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	friends := s.friendView.Clone()
	return Snapshot{
		UserID:           s.userID,
		Friends:          friends,
		Groups:           s.groupView.Clone(),
		InviteCandidates: append([]models.UserBasicInfo(nil), friends.Friends...),
		Status:           s.status,
		RefreshedAt:      s.refreshedAt,
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) info(format string, args ...any) {
	s.status = Status{Info: fmt.Sprintf(format, args...)}
}

func (s *Session) nameOf(userID uint) string {
	if u, _, ok := s.friendView.Find(userID); ok {
		if name := u.DisplayName(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("用户 %d", userID)
}

func (s *Session) groupName(groupID uint) string {
	for _, list := range [][]models.Group{s.groupView.Member, s.groupView.Invited} {
		for _, g := range list {
			if g.ID == groupID {
				return g.Name
			}
		}
	}
	return fmt.Sprintf("群组 %d", groupID)
}

func (s *Session) sendFriendRequest(ctx context.Context, e SendFriendRequest) error {
	prev := s.friendView.Clone()
	moved := s.friendView.Move(e.Target, views.PartitionOutgoing)
	if _, err := s.friends.SendRequest(ctx, s.userID, e.Target); err != nil {
		s.friendView = prev
		return err
	}
	s.catchUp(ctx, moved)
	s.info("已向 %s 发送好友请求", s.nameOf(e.Target))
	return nil
}

func (s *Session) acceptFriendRequest(ctx context.Context, e AcceptFriendRequest) error {
	prev := s.friendView.Clone()
	moved := s.friendView.Move(e.From, views.PartitionFriends)
	if err := s.friends.AcceptRequest(ctx, s.userID, e.From); err != nil {
		s.friendView = prev
		return err
	}
	s.catchUp(ctx, moved)
	s.info("已与 %s 成为好友", s.nameOf(e.From))
	return nil
}

// dropRelation 覆盖拒绝、删除、撤回三种操作：对方都回到 Unrelated。
func (s *Session) dropRelation(ctx context.Context, other uint, okFormat string, op func(context.Context, uint, uint) error) error {
	prev := s.friendView.Clone()
	moved := s.friendView.Move(other, views.PartitionUnrelated)
	if err := op(ctx, s.userID, other); err != nil {
		s.friendView = prev
		return err
	}
	s.catchUp(ctx, moved)
	s.info(okFormat, s.nameOf(other))
	return nil
}

func (s *Session) createGroup(ctx context.Context, e CreateGroup) error {
	g, err := s.groups.CreateGroup(ctx, s.userID, e.Name)
	if err != nil {
		return err
	}
	s.groupView.AddMember(*g)
	s.info("已创建群组 %s", g.Name)
	return nil
}

func (s *Session) inviteToGroup(ctx context.Context, e InviteToGroup) error {
	if err := s.groups.InviteUser(ctx, s.userID, e.Target, e.GroupID); err != nil {
		return err
	}
	s.info("已邀请 %s 加入 %s", s.nameOf(e.Target), s.groupName(e.GroupID))
	return nil
}

func (s *Session) acceptGroupInvite(ctx context.Context, e AcceptGroupInvite) error {
	prev := s.groupView.Clone()
	moved := s.groupView.Accept(e.GroupID)
	if err := s.groups.AcceptInvite(ctx, s.userID, e.GroupID); err != nil {
		s.groupView = prev
		return err
	}
	s.catchUp(ctx, moved)
	s.info("已加入 %s", s.groupName(e.GroupID))
	return nil
}

func (s *Session) leaveGroup(ctx context.Context, groupID uint, op func(context.Context, uint, uint) (bool, error), msg string) error {
	name := s.groupName(groupID)
	prev := s.groupView.Clone()
	s.groupView.Remove(groupID)
	deleted, err := op(ctx, s.userID, groupID)
	if err != nil {
		s.groupView = prev
		return err
	}
	if deleted {
		s.info("%s %s，群组已无成员并被删除", msg, name)
	} else {
		s.info("%s %s", msg, name)
	}
	return nil
}

// catchUp 在对方不在当前视图中 (例如刚注册的用户) 时立即刷新，而不是等下一次 Tick。
func (s *Session) catchUp(ctx context.Context, moved bool) {
	if moved {
		return
	}
	if err := s.tick(ctx); err != nil {
		s.log.Debug("补充刷新失败，等待下一次 Tick", zap.Error(err))
	}
}

// tick 两个视图各自独立刷新：某一侧读取失败时保留该侧上一次的视图。
func (s *Session) tick(ctx context.Context) error {
	var errs []error

	fv, err := s.friends.Reconcile(ctx, s.userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("刷新好友视图: %w", err))
	} else {
		s.friendView = fv
	}

	gv, err := s.groups.Reconcile(ctx, s.userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("刷新群组视图: %w", err))
	} else {
		s.groupView = gv
	}

	if len(errs) > 0 {
		s.log.Warn("刷新会话视图失败", zap.Errors("errors", errs))
		return errors.Join(errs...)
	}
	s.refreshedAt = s.now()
	return nil
}
