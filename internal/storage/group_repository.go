package storage

import (
	"context"

	"gorm.io/gorm"

	"im-social/internal/models"
)

// GroupRepository 定义了群组及成员关系数据操作的接口。
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByID(ctx context.Context, id uint) (*models.Group, error)
	// GetGroupsByIDs 批量查询；已删除或不存在的群组不会出现在结果中。
	GetGroupsByIDs(ctx context.Context, ids []uint) ([]models.Group, error)
	// DeleteGroup 删除群组及其成员记录和群消息。
	DeleteGroup(ctx context.Context, id uint) error
	ListEmptyGroupIDs(ctx context.Context) ([]uint, error)

	AddMember(ctx context.Context, member *models.GroupMembership) error
	GetMember(ctx context.Context, groupID uint, userID uint) (*models.GroupMembership, error)
	// SetMemberAccepted 只更新尚未接受的邀请。
	SetMemberAccepted(ctx context.Context, groupID uint, userID uint) error
	RemoveMember(ctx context.Context, groupID uint, userID uint) error
	ListMembershipsByUser(ctx context.Context, userID uint) ([]models.GroupMembership, error)
	ListMembershipsByGroup(ctx context.Context, groupID uint) ([]models.GroupMembership, error)
	CountMembers(ctx context.Context, groupID uint) (int64, error)
}

// gormGroupRepository 使用 GORM 实现 GroupRepository。
type gormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository 创建一个新的基于 GORM 的 GroupRepository。
func NewGormGroupRepository(db *gorm.DB) GroupRepository {
	return &gormGroupRepository{db: db}
}

// CreateGroup 创建一个新的群组，group.ID 由数据库回填。
func (r *gormGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// GetGroupByID 通过ID检索群组。
func (r *gormGroupRepository) GetGroupByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *gormGroupRepository) GetGroupsByIDs(ctx context.Context, ids []uint) ([]models.Group, error) {
	var groups []models.Group
	if len(ids) == 0 {
		return groups, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&groups).Error
	return groups, err
}

// DeleteGroup 不自带事务；需要原子性时由调用方在事务中重新绑定仓库。
func (r *gormGroupRepository) DeleteGroup(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("kind = ? AND target_id = ?", models.GroupMessageKind, id).Delete(&models.Message{}).Error; err != nil {
		return err
	}
	if err := db.Where("group_id = ?", id).Delete(&models.GroupMembership{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Group{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListEmptyGroupIDs 找出没有任何成员记录的群组。
func (r *gormGroupRepository) ListEmptyGroupIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("NOT EXISTS (SELECT 1 FROM group_memberships gm WHERE gm.group_id = groups.id)").
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// AddMember 向群组中添加成员记录。已存在时返回 gorm.ErrDuplicatedKey。
func (r *gormGroupRepository) AddMember(ctx context.Context, member *models.GroupMembership) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetMember 获取群组中的特定成员记录。
func (r *gormGroupRepository) GetMember(ctx context.Context, groupID uint, userID uint) (*models.GroupMembership, error) {
	var member models.GroupMembership
	err := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *gormGroupRepository) SetMemberAccepted(ctx context.Context, groupID uint, userID uint) error {
	res := r.db.WithContext(ctx).Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ? AND accepted_invite = ?", groupID, userID, false).
		Update("accepted_invite", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveMember 从群组中移除成员记录。
func (r *gormGroupRepository) RemoveMember(ctx context.Context, groupID uint, userID uint) error {
	res := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMembership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormGroupRepository) ListMembershipsByUser(ctx context.Context, userID uint) ([]models.GroupMembership, error) {
	var members []models.GroupMembership
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("group_id ASC").Find(&members).Error
	return members, err
}

func (r *gormGroupRepository) ListMembershipsByGroup(ctx context.Context, groupID uint) ([]models.GroupMembership, error) {
	var members []models.GroupMembership
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("created_at ASC, user_id ASC").Find(&members).Error
	return members, err
}

func (r *gormGroupRepository) CountMembers(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupMembership{}).Where("group_id = ?", groupID).Count(&count).Error
	return count, err
}
