package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"im-social/internal/apperrors"
	"im-social/internal/models"
	"im-social/internal/storage"
)

const (
	// MaxMessageLength 以字符计。
	MaxMessageLength = 4000
	// DefaultMessageLimit 是未指定 limit 时返回的条数。
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// MessageService 定义了消息相关服务的接口。
// 私聊只能发给好友，群聊只能由已接受邀请的成员发送。
type MessageService interface {
	SendDirect(ctx context.Context, senderID, receiverID uint, content string) (*models.Message, error)
	SendGroup(ctx context.Context, senderID, groupID uint, content string) (*models.Message, error)
	ListDirect(ctx context.Context, userID, otherID uint, limit int) ([]models.Message, error)
	ListGroup(ctx context.Context, userID, groupID uint, limit int) ([]models.Message, error)
}

// messageService 是 MessageService 的实现。
type messageService struct {
	msgRepo storage.MessageRepository
	friends FriendService
	groups  GroupService
	now     func() time.Time
	log     *zap.Logger
}

// NewMessageService 创建一个新的 MessageService 实例。
func NewMessageService(msgRepo storage.MessageRepository, friends FriendService, groups GroupService, log *zap.Logger) MessageService {
	return &messageService{
		msgRepo: msgRepo,
		friends: friends,
		groups:  groups,
		now:     time.Now,
		log:     log.Named("messages"),
	}
}

func (s *messageService) SendDirect(ctx context.Context, senderID, receiverID uint, content string) (*models.Message, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.requireFriends(ctx, senderID, receiverID); err != nil {
		return nil, err
	}
	return s.store(ctx, models.DirectMessageKind, senderID, receiverID, content)
}

func (s *messageService) SendGroup(ctx context.Context, senderID, groupID uint, content string) (*models.Message, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, senderID, groupID); err != nil {
		return nil, err
	}
	return s.store(ctx, models.GroupMessageKind, senderID, groupID, content)
}

func (s *messageService) ListDirect(ctx context.Context, userID, otherID uint, limit int) ([]models.Message, error) {
	if err := s.requireFriends(ctx, userID, otherID); err != nil {
		return nil, err
	}
	msgs, err := s.msgRepo.ListDirect(ctx, userID, otherID, clampLimit(limit))
	if err != nil {
		return nil, storeErr("查询私聊消息", err)
	}
	return msgs, nil
}

func (s *messageService) ListGroup(ctx context.Context, userID, groupID uint, limit int) ([]models.Message, error) {
	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	msgs, err := s.msgRepo.ListGroup(ctx, groupID, clampLimit(limit))
	if err != nil {
		return nil, storeErr("查询群聊消息", err)
	}
	return msgs, nil
}

func (s *messageService) store(ctx context.Context, kind models.MessageKind, senderID, targetID uint, content string) (*models.Message, error) {
	msg := &models.Message{
		Kind:     kind,
		SenderID: senderID,
		TargetID: targetID,
		Content:  content,
		SentAt:   s.now().UTC(),
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, storeErr("存储消息", err)
	}
	s.log.Debug("消息已存储",
		zap.String("kind", string(kind)),
		zap.Uint("sender", senderID),
		zap.Uint("target", targetID),
		zap.Uint("message", msg.ID))
	return msg, nil
}

func (s *messageService) requireFriends(ctx context.Context, a, b uint) error {
	ok, err := s.friends.AreFriends(ctx, a, b)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("用户 %d 与 %d 不是好友: %w", a, b, apperrors.ErrForbidden)
	}
	return nil
}

func (s *messageService) requireMember(ctx context.Context, userID, groupID uint) error {
	ok, err := s.groups.IsAcceptedMember(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("用户 %d 不是群组 %d 的成员: %w", userID, groupID, apperrors.ErrForbidden)
	}
	return nil
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.Validation("content", "消息内容不能为空")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", apperrors.Validation("content", fmt.Sprintf("消息内容不能超过 %d 个字符", MaxMessageLength))
	}
	return content, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultMessageLimit
	case limit > MaxMessageLimit:
		return MaxMessageLimit
	}
	return limit
}
