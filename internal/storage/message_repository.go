package storage

import (
	"context"
	"slices"

	"gorm.io/gorm"

	"im-social/internal/models"
)

// MessageRepository 定义了消息数据操作的接口。
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// ListDirect 返回两个用户之间最近的 limit 条私聊消息，按发送时间升序。
	// limit <= 0 表示不限制。
	ListDirect(ctx context.Context, userA, userB uint, limit int) ([]models.Message, error)
	ListGroup(ctx context.Context, groupID uint, limit int) ([]models.Message, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
}

// gormMessageRepository 使用 GORM 实现 MessageRepository。
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建一个新的基于 GORM 的 MessageRepository。
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// Create 在数据库中创建一条新的消息记录。
func (r *gormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *gormMessageRepository) ListDirect(ctx context.Context, userA, userB uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	query := r.db.WithContext(ctx).
		Where("kind = ?", models.DirectMessageKind).
		Where("(sender_id = ? AND target_id = ?) OR (sender_id = ? AND target_id = ?)", userA, userB, userB, userA).
		Order("sent_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	slices.Reverse(messages) // 倒序取最近的记录，返回升序
	return messages, nil
}

func (r *gormMessageRepository) ListGroup(ctx context.Context, groupID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	query := r.db.WithContext(ctx).
		Where("kind = ? AND target_id = ?", models.GroupMessageKind, groupID).
		Order("sent_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	slices.Reverse(messages) // 倒序取最近的记录，返回升序
	return messages, nil
}

// DeleteByUser 删除用户发送的全部消息以及发给该用户的私聊消息。
func (r *gormMessageRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("sender_id = ? OR (kind = ? AND target_id = ?)", userID, models.DirectMessageKind, userID).
		Delete(&models.Message{})
	return res.RowsAffected, res.Error
}
