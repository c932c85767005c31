package storage

import (
	"context"

	"gorm.io/gorm"

	"im-social/internal/models"
)

// FriendRelationRepository 是好友关系记录的存储契约。
// 所有按键操作都接收规范化后的 (lo, hi)，参见 models.CanonicalPair。
type FriendRelationRepository interface {
	// Create 插入新记录；同一对用户已存在记录时返回 gorm.ErrDuplicatedKey。
	Create(ctx context.Context, rel *models.FriendRelation) error
	Get(ctx context.Context, lo, hi uint) (*models.FriendRelation, error)
	ListByUser(ctx context.Context, userID uint) ([]models.FriendRelation, error)
	// SetAccepted 将双方标记都置为 true。
	SetAccepted(ctx context.Context, lo, hi uint) error
	Delete(ctx context.Context, lo, hi uint) error
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	// DeleteUnaccepted 删除双方均未接受的无效记录。
	DeleteUnaccepted(ctx context.Context) (int64, error)
}

type gormFriendRelationRepository struct {
	db *gorm.DB
}

// NewGormFriendRelationRepository creates a new GORM-based FriendRelationRepository.
func NewGormFriendRelationRepository(db *gorm.DB) FriendRelationRepository {
	return &gormFriendRelationRepository{db: db}
}

func (r *gormFriendRelationRepository) Create(ctx context.Context, rel *models.FriendRelation) error {
	return r.db.WithContext(ctx).Create(rel).Error
}

func (r *gormFriendRelationRepository) Get(ctx context.Context, lo, hi uint) (*models.FriendRelation, error) {
	var rel models.FriendRelation
	err := r.db.WithContext(ctx).
		Where("lo_user_id = ? AND hi_user_id = ?", lo, hi).
		First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// ListByUser 返回 userID 作为任一方参与的所有记录。
func (r *gormFriendRelationRepository) ListByUser(ctx context.Context, userID uint) ([]models.FriendRelation, error) {
	var rels []models.FriendRelation
	err := r.db.WithContext(ctx).
		Where("lo_user_id = ? OR hi_user_id = ?", userID, userID).
		Order("lo_user_id ASC, hi_user_id ASC").
		Find(&rels).Error
	return rels, err
}

func (r *gormFriendRelationRepository) SetAccepted(ctx context.Context, lo, hi uint) error {
	res := r.db.WithContext(ctx).Model(&models.FriendRelation{}).
		Where("lo_user_id = ? AND hi_user_id = ?", lo, hi).
		Updates(map[string]interface{}{"accepted_by_lo": true, "accepted_by_hi": true})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormFriendRelationRepository) Delete(ctx context.Context, lo, hi uint) error {
	res := r.db.WithContext(ctx).
		Where("lo_user_id = ? AND hi_user_id = ?", lo, hi).
		Delete(&models.FriendRelation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormFriendRelationRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("lo_user_id = ? OR hi_user_id = ?", userID, userID).
		Delete(&models.FriendRelation{})
	return res.RowsAffected, res.Error
}

func (r *gormFriendRelationRepository) DeleteUnaccepted(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("accepted_by_lo = ? AND accepted_by_hi = ?", false, false).
		Delete(&models.FriendRelation{})
	return res.RowsAffected, res.Error
}
