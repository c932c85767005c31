package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-social/internal/apperrors"
	"im-social/internal/imtypes"
	"im-social/internal/models"
	"im-social/internal/storage"
	"im-social/internal/views"
)

// FriendService 驱动好友请求的状态机：发送、接受、拒绝、删除、撤回。
type FriendService interface {
	SendRequest(ctx context.Context, self, target uint) (*models.FriendRelation, error)
	AcceptRequest(ctx context.Context, self, other uint) error
	DeclineRequest(ctx context.Context, self, other uint) error
	RemoveFriend(ctx context.Context, self, other uint) error
	RetractRequest(ctx context.Context, self, other uint) error

	ListRelations(ctx context.Context, self uint) ([]models.FriendRelation, error)
	// Reconcile 重新读取目录和关系记录，返回完整的分类视图。
	Reconcile(ctx context.Context, self uint) (views.FriendView, error)
	AreFriends(ctx context.Context, a, b uint) (bool, error)
	// RepairInvalidRelations 删除双方均未接受的记录，返回删除条数。
	RepairInvalidRelations(ctx context.Context) (int64, error)
}

type friendService struct {
	userRepo   storage.UserRepository
	friendRepo storage.FriendRelationRepository
	events     eventNotifier
	log        *zap.Logger
}

// NewFriendService creates a new FriendService. publisher may be nil.
func NewFriendService(
	userRepo storage.UserRepository,
	friendRepo storage.FriendRelationRepository,
	publisher imtypes.RelationEventPublisher,
	log *zap.Logger,
) FriendService {
	log = log.Named("friends")
	return &friendService{
		userRepo:   userRepo,
		friendRepo: friendRepo,
		events:     eventNotifier{publisher: publisher, log: log},
		log:        log,
	}
}

// SendRequest 插入规范化记录，请求方一侧标记为已接受。
// 同一对用户已有任何记录 (待处理或已是好友) 时返回 ErrAlreadyRelated。
func (s *friendService) SendRequest(ctx context.Context, self, target uint) (*models.FriendRelation, error) {
	rel, err := models.NewFriendRequest(self, target)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByID(ctx, target); err != nil {
		return nil, storeErr(fmt.Sprintf("查找用户 %d", target), err)
	}

	if err := s.friendRepo.Create(ctx, rel); err != nil {
		return nil, storeErrDup("创建好友请求", err, apperrors.ErrAlreadyRelated)
	}

	s.log.Info("好友请求已发送", zap.Uint("from", self), zap.Uint("to", target))
	s.events.notify(ctx, imtypes.FriendRequestSent, self, target, 0, self, target)
	return rel, nil
}

// AcceptRequest 只能接受对方发来的请求；对已经是好友的记录是幂等的。
func (s *friendService) AcceptRequest(ctx context.Context, self, other uint) error {
	lo, hi, err := models.CanonicalPair(self, other)
	if err != nil {
		return err
	}

	rel, err := s.friendRepo.Get(ctx, lo, hi)
	if err != nil {
		return storeErr("查找好友请求", err)
	}
	p, err := rel.Perspective(self)
	if err != nil {
		return err
	}
	if !p.OtherAccepted {
		return fmt.Errorf("用户 %d 没有向 %d 发送好友请求: %w", other, self, apperrors.ErrNotFound)
	}
	if p.SelfAccepted {
		return nil
	}

	if err := s.friendRepo.SetAccepted(ctx, lo, hi); err != nil {
		return storeErr("接受好友请求", err)
	}

	s.log.Info("好友请求已接受", zap.Uint("user", self), zap.Uint("from", other))
	s.events.notify(ctx, imtypes.FriendRequestAccepted, self, other, 0, self, other)
	return nil
}

func (s *friendService) DeclineRequest(ctx context.Context, self, other uint) error {
	return s.deleteRelation(ctx, "拒绝好友请求", self, other)
}

func (s *friendService) RemoveFriend(ctx context.Context, self, other uint) error {
	return s.deleteRelation(ctx, "删除好友", self, other)
}

func (s *friendService) RetractRequest(ctx context.Context, self, other uint) error {
	return s.deleteRelation(ctx, "撤回好友请求", self, other)
}

// 拒绝、删除、撤回在存储层面是同一个操作。
func (s *friendService) deleteRelation(ctx context.Context, op string, self, other uint) error {
	lo, hi, err := models.CanonicalPair(self, other)
	if err != nil {
		return err
	}
	if err := s.friendRepo.Delete(ctx, lo, hi); err != nil {
		return storeErr(op, err)
	}

	s.log.Info(op, zap.Uint("user", self), zap.Uint("other", other))
	s.events.notify(ctx, imtypes.FriendRelationRemoved, self, other, 0, self, other)
	return nil
}

func (s *friendService) ListRelations(ctx context.Context, self uint) ([]models.FriendRelation, error) {
	rels, err := s.friendRepo.ListByUser(ctx, self)
	if err != nil {
		return nil, storeErr("查询好友关系", err)
	}
	return rels, nil
}

// Reconcile 读取关系记录失败时返回错误；用户目录读取失败时降级为省略所有用户。
func (s *friendService) Reconcile(ctx context.Context, self uint) (views.FriendView, error) {
	rels, err := s.ListRelations(ctx, self)
	if err != nil {
		return views.FriendView{}, err
	}

	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		s.log.Warn("读取用户目录失败，本次刷新省略所有用户", zap.Uint("user", self), zap.Error(err))
		users = nil
	}

	view, violations := views.ClassifyFriends(self, users, rels)
	for _, v := range violations {
		s.log.Error("发现无效的好友关系记录", zap.Uint("user", self), zap.Error(v))
	}
	return view, nil
}

func (s *friendService) AreFriends(ctx context.Context, a, b uint) (bool, error) {
	lo, hi, err := models.CanonicalPair(a, b)
	if err != nil {
		return false, err
	}
	rel, err := s.friendRepo.Get(ctx, lo, hi)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("查询好友关系", err)
	}
	return rel.AcceptedByLo && rel.AcceptedByHi, nil
}

func (s *friendService) RepairInvalidRelations(ctx context.Context) (int64, error) {
	n, err := s.friendRepo.DeleteUnaccepted(ctx)
	if err != nil {
		return 0, storeErr("清理无效好友关系", err)
	}
	if n > 0 {
		s.log.Warn("已删除无效的好友关系记录", zap.Int64("count", n))
	}
	return n, nil
}
