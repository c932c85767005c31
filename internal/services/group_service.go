package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-social/internal/apperrors"
	"im-social/internal/imtypes"
	"im-social/internal/models"
	"im-social/internal/storage"
	"im-social/internal/views"
)

// MaxGroupNameLength 与 groups.name 列宽一致。
const MaxGroupNameLength = 100

// GroupService 定义了群组相关服务的接口。
type GroupService interface {
	// CreateGroup 创建群组并把创建者作为已接受的成员加入。
	CreateGroup(ctx context.Context, creatorID uint, name string) (*models.Group, error)
	GetGroup(ctx context.Context, groupID uint) (*models.Group, error)
	InviteUser(ctx context.Context, inviterID, targetID, groupID uint) error
	AcceptInvite(ctx context.Context, userID, groupID uint) error
	// DeclineInvite 与 LeaveGroup 相同：删除成员记录，群组为空时一并删除。
	DeclineInvite(ctx context.Context, userID, groupID uint) (groupDeleted bool, err error)
	LeaveGroup(ctx context.Context, userID, groupID uint) (groupDeleted bool, err error)

	ListMemberships(ctx context.Context, userID uint) ([]models.GroupMembership, error)
	ListMembers(ctx context.Context, userID, groupID uint) ([]GroupMemberInfo, error)
	IsAcceptedMember(ctx context.Context, userID, groupID uint) (bool, error)
	Reconcile(ctx context.Context, userID uint) (views.GroupView, error)

	// LeaveAllGroups 用于注销账户。
	LeaveAllGroups(ctx context.Context, userID uint) error
	// PurgeEmptyGroups 删除没有成员记录的群组 (维护命令)。
	PurgeEmptyGroups(ctx context.Context) ([]uint, error)
}

// GroupMemberInfo 是成员列表中的一项。
type GroupMemberInfo struct {
	User           models.UserBasicInfo `json:"user"`
	AcceptedInvite bool                 `json:"acceptedInvite"`
}

// groupService 是 GroupService 的实现。
// db 不为 nil 时，多步写入在单个事务中完成；否则退化为补偿删除。
type groupService struct {
	db        *gorm.DB
	groupRepo storage.GroupRepository
	userRepo  storage.UserRepository
	events    eventNotifier
	log       *zap.Logger
}

// NewGroupService 创建一个新的 GroupService 实例。db 和 publisher 都可以为 nil。
func NewGroupService(
	db *gorm.DB,
	groupRepo storage.GroupRepository,
	userRepo storage.UserRepository,
	publisher imtypes.RelationEventPublisher,
	log *zap.Logger,
) GroupService {
	log = log.Named("groups")
	return &groupService{
		db:        db,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		events:    eventNotifier{publisher: publisher, log: log},
		log:       log,
	}
}

func (s *groupService) CreateGroup(ctx context.Context, creatorID uint, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name", "群组名称不能为空")
	}
	if len([]rune(name)) > MaxGroupNameLength {
		return nil, apperrors.Validation("name", fmt.Sprintf("群组名称不能超过 %d 个字符", MaxGroupNameLength))
	}

	group := &models.Group{Name: name}
	var err error
	if s.db != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return createGroupWithOwner(ctx, storage.NewGormGroupRepository(tx), group, creatorID)
		})
	} else {
		err = s.createGroupCompensating(ctx, group, creatorID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("群组已创建", zap.Uint("group", group.ID), zap.Uint("creator", creatorID))
	s.events.notify(ctx, imtypes.GroupCreated, creatorID, 0, group.ID, creatorID)
	return group, nil
}

func createGroupWithOwner(ctx context.Context, repo storage.GroupRepository, group *models.Group, creatorID uint) error {
	if err := repo.CreateGroup(ctx, group); err != nil {
		return storeErr("创建群组", err)
	}
	owner := &models.GroupMembership{UserID: creatorID, GroupID: group.ID, AcceptedInvite: true}
	if err := repo.AddMember(ctx, owner); err != nil {
		return storeErr(fmt.Sprintf("将创建者 %d 加入群组 %d", creatorID, group.ID), err)
	}
	return nil
}

// createGroupCompensating 在没有事务的存储上运行：加入成员失败时删除刚创建的群组。
// 回滚本身失败时只记录并返回，不重试，调用方需要手动处理残留的空群组。
func (s *groupService) createGroupCompensating(ctx context.Context, group *models.Group, creatorID uint) error {
	if err := s.groupRepo.CreateGroup(ctx, group); err != nil {
		return storeErr("创建群组", err)
	}
	owner := &models.GroupMembership{UserID: creatorID, GroupID: group.ID, AcceptedInvite: true}
	addErr := s.groupRepo.AddMember(ctx, owner)
	if addErr == nil {
		return nil
	}

	addErr = storeErr(fmt.Sprintf("将创建者 %d 加入群组 %d", creatorID, group.ID), addErr)
	if delErr := s.groupRepo.DeleteGroup(ctx, group.ID); delErr != nil {
		s.log.Error("回滚群组创建失败，群组残留",
			zap.Uint("group", group.ID), zap.NamedError("cause", addErr), zap.Error(delErr))
		return errors.Join(addErr, storeErr(fmt.Sprintf("回滚群组 %d", group.ID), delErr))
	}
	return addErr
}

func (s *groupService) GetGroup(ctx context.Context, groupID uint) (*models.Group, error) {
	g, err := s.groupRepo.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("查找群组 %d", groupID), err)
	}
	return g, nil
}

// InviteUser 只有已接受邀请的成员才能邀请他人。
func (s *groupService) InviteUser(ctx context.Context, inviterID, targetID, groupID uint) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}
	ok, err := s.IsAcceptedMember(ctx, inviterID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("用户 %d 不是群组 %d 的成员: %w", inviterID, groupID, apperrors.ErrNotFound)
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return storeErr(fmt.Sprintf("查找用户 %d", targetID), err)
	}

	invite := &models.GroupMembership{UserID: targetID, GroupID: groupID, InvitedBy: inviterID}
	if err := s.groupRepo.AddMember(ctx, invite); err != nil {
		return storeErrDup("邀请用户", err, apperrors.ErrAlreadyMember)
	}

	s.log.Info("已发送群组邀请", zap.Uint("group", groupID), zap.Uint("inviter", inviterID), zap.Uint("target", targetID))
	s.events.notify(ctx, imtypes.GroupInviteSent, inviterID, targetID, groupID, targetID)
	return nil
}

func (s *groupService) AcceptInvite(ctx context.Context, userID, groupID uint) error {
	if err := s.groupRepo.SetMemberAccepted(ctx, groupID, userID); err != nil {
		return storeErr(fmt.Sprintf("接受群组 %d 的邀请", groupID), err)
	}
	s.log.Info("已接受群组邀请", zap.Uint("group", groupID), zap.Uint("user", userID))
	s.events.notify(ctx, imtypes.GroupInviteAccepted, userID, 0, groupID, userID)
	return nil
}

func (s *groupService) DeclineInvite(ctx context.Context, userID, groupID uint) (bool, error) {
	return s.LeaveGroup(ctx, userID, groupID)
}

// LeaveGroup 删除成员记录；若群组因此没有任何成员记录 (含待处理邀请)，删除群组。
// 没有事务时，删除成员与检查人数之间存在短暂窗口，群组可能暂时为空但尚未删除。
func (s *groupService) LeaveGroup(ctx context.Context, userID, groupID uint) (bool, error) {
	var deleted bool
	var err error
	if s.db != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			deleted, txErr = leaveAndCascade(ctx, storage.NewGormGroupRepository(tx), userID, groupID)
			return txErr
		})
	} else {
		deleted, err = leaveAndCascade(ctx, s.groupRepo, userID, groupID)
	}
	if err != nil {
		return false, err
	}

	s.log.Info("已离开群组", zap.Uint("group", groupID), zap.Uint("user", userID), zap.Bool("groupDeleted", deleted))
	s.events.notify(ctx, imtypes.GroupMemberLeft, userID, 0, groupID, userID)
	if deleted {
		s.events.notify(ctx, imtypes.GroupDeleted, userID, 0, groupID, userID)
	}
	return deleted, nil
}

func leaveAndCascade(ctx context.Context, repo storage.GroupRepository, userID, groupID uint) (bool, error) {
	if err := repo.RemoveMember(ctx, groupID, userID); err != nil {
		return false, storeErr(fmt.Sprintf("离开群组 %d", groupID), err)
	}
	remaining, err := repo.CountMembers(ctx, groupID)
	if err != nil {
		return false, storeErr(fmt.Sprintf("统计群组 %d 成员", groupID), err)
	}
	if remaining > 0 {
		return false, nil
	}
	if err := repo.DeleteGroup(ctx, groupID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, storeErr(fmt.Sprintf("删除空群组 %d", groupID), err)
	}
	return true, nil
}

func (s *groupService) ListMemberships(ctx context.Context, userID uint) ([]models.GroupMembership, error) {
	ms, err := s.groupRepo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("查询群组成员关系", err)
	}
	return ms, nil
}

// ListMembers 只对已接受邀请的成员开放。
func (s *groupService) ListMembers(ctx context.Context, userID, groupID uint) ([]GroupMemberInfo, error) {
	ok, err := s.IsAcceptedMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("用户 %d 不是群组 %d 的成员: %w", userID, groupID, apperrors.ErrForbidden)
	}

	memberships, err := s.groupRepo.ListMembershipsByGroup(ctx, groupID)
	if err != nil {
		return nil, storeErr("查询群组成员", err)
	}
	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("查询成员信息", err)
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	members := make([]GroupMemberInfo, 0, len(memberships))
	for _, m := range memberships {
		u, ok := byID[m.UserID]
		if !ok {
			continue
		}
		members = append(members, GroupMemberInfo{User: u.BasicInfo(), AcceptedInvite: m.AcceptedInvite})
	}
	return members, nil
}

func (s *groupService) IsAcceptedMember(ctx context.Context, userID, groupID uint) (bool, error) {
	m, err := s.groupRepo.GetMember(ctx, groupID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("查询群组成员", err)
	}
	return m.AcceptedInvite, nil
}

// Reconcile 按接受状态划分成员关系，批量查询群组；查不到的群组从视图中省略。
func (s *groupService) Reconcile(ctx context.Context, userID uint) (views.GroupView, error) {
	memberships, err := s.ListMemberships(ctx, userID)
	if err != nil {
		return views.GroupView{}, err
	}

	groups, err := s.groupRepo.GetGroupsByIDs(ctx, views.GroupIDs(memberships))
	if err != nil {
		s.log.Warn("批量查询群组失败，本次刷新省略群组", zap.Uint("user", userID), zap.Error(err))
		groups = nil
	}
	return views.ClassifyGroups(memberships, groups), nil
}

func (s *groupService) LeaveAllGroups(ctx context.Context, userID uint) error {
	memberships, err := s.ListMemberships(ctx, userID)
	if err != nil {
		return err
	}
	for _, m := range memberships {
		if _, err := s.LeaveGroup(ctx, userID, m.GroupID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *groupService) PurgeEmptyGroups(ctx context.Context) ([]uint, error) {
	ids, err := s.groupRepo.ListEmptyGroupIDs(ctx)
	if err != nil {
		return nil, storeErr("查询空群组", err)
	}
	purged := make([]uint, 0, len(ids))
	for _, id := range ids {
		if err := s.groupRepo.DeleteGroup(ctx, id); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return purged, storeErr(fmt.Sprintf("删除空群组 %d", id), err)
		}
		purged = append(purged, id)
	}
	if len(purged) > 0 {
		s.log.Info("已清理空群组", zap.Uints("groups", purged))
	}
	return purged, nil
}
