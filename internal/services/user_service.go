package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-social/internal/apperrors"
	"im-social/internal/auth"
	"im-social/internal/models"
	"im-social/internal/storage"
)

// UserService 定义了用户相关服务的接口。
type UserService interface {
	GetUserProfile(ctx context.Context, userID uint) (*models.User, error)
	// ListDirectory 返回全部用户的公开信息，即"所有用户"目录。
	ListDirectory(ctx context.Context) ([]models.UserBasicInfo, error)
	UpdateEmail(ctx context.Context, userID uint, newEmail string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	// DeleteAccount 退出所有群组，删除好友关系、消息和账户本身。
	DeleteAccount(ctx context.Context, userID uint) error
}

// userService 是 UserService 的实现。
type userService struct {
	userRepo    storage.UserRepository
	friendRepo  storage.FriendRelationRepository
	messageRepo storage.MessageRepository
	groups      GroupService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(
	userRepo storage.UserRepository,
	friendRepo storage.FriendRelationRepository,
	messageRepo storage.MessageRepository,
	groups GroupService,
	log *zap.Logger,
) UserService {
	return &userService{
		userRepo:    userRepo,
		friendRepo:  friendRepo,
		messageRepo: messageRepo,
		groups:      groups,
		validate:    validator.New(),
		log:         log.Named("users"),
	}
}

// GetUserProfile 获取用户的个人资料。
func (s *userService) GetUserProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("获取用户 %d", userID), err)
	}
	return user, nil
}

func (s *userService) ListDirectory(ctx context.Context) ([]models.UserBasicInfo, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, storeErr("读取用户目录", err)
	}
	infos := make([]models.UserBasicInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, u.BasicInfo())
	}
	return infos, nil
}

func (s *userService) UpdateEmail(ctx context.Context, userID uint, newEmail string) (*models.User, error) {
	newEmail = normalizeEmail(newEmail)
	if err := s.validate.Var(newEmail, "required,email,max=255"); err != nil {
		return nil, apperrors.Validation("email", "邮箱地址格式无效")
	}

	existing, err := s.userRepo.GetByEmail(ctx, newEmail)
	switch {
	case err == nil && existing.ID != userID:
		return nil, ErrEmailInUse
	case err == nil:
		return existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storeErr("检查邮箱", err)
	}

	if err := s.userRepo.UpdateEmail(ctx, userID, newEmail); err != nil {
		return nil, storeErrDup(fmt.Sprintf("更新用户 %d 的邮箱", userID), err, ErrEmailInUse)
	}
	s.log.Info("邮箱已更新", zap.Uint("user", userID))
	return s.GetUserProfile(ctx, userID)
}

// UpdatePassword 需要先验证旧密码。
func (s *userService) UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if !auth.IsStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("密码哈希失败: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return storeErr(fmt.Sprintf("更新用户 %d 的密码", userID), err)
	}
	s.log.Info("密码已更新", zap.Uint("user", userID))
	return nil
}

func (s *userService) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.GetUserProfile(ctx, userID); err != nil {
		return err
	}

	// 先退出群组，让空群组随之级联删除
	if err := s.groups.LeaveAllGroups(ctx, userID); err != nil {
		return fmt.Errorf("注销账户时退出群组失败: %w", err)
	}
	if _, err := s.friendRepo.DeleteByUser(ctx, userID); err != nil {
		return storeErr("删除好友关系", err)
	}
	if _, err := s.messageRepo.DeleteByUser(ctx, userID); err != nil {
		return storeErr("删除消息", err)
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return storeErr(fmt.Sprintf("删除用户 %d", userID), err)
	}

	s.log.Info("账户已注销", zap.Uint("user", userID))
	return nil
}
