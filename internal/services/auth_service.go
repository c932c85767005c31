package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-social/internal/apperrors"
	"im-social/internal/auth"
	"im-social/internal/config"
	"im-social/internal/models"
	"im-social/internal/storage"
)

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	Register(ctx context.Context, firstName, lastName, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (token string, user *models.User, err error)
	// Logout 把令牌的 JTI 加入黑名单直到其自然过期。
	Logout(ctx context.Context, claims *auth.Claims) error
}

// authService 是 AuthService 的实现。
type authService struct {
	userRepo  storage.UserRepository
	blacklist auth.TokenBlacklist
	cfg       config.AuthConfig
	validate  *validator.Validate
	log       *zap.Logger
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo storage.UserRepository, blacklist auth.TokenBlacklist, cfg config.AuthConfig, log *zap.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		blacklist: blacklist,
		cfg:       cfg,
		validate:  validator.New(),
		log:       log.Named("auth"),
	}
}

// Register 处理用户注册逻辑。
func (s *authService) Register(ctx context.Context, firstName, lastName, email, password string) (*models.User, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = normalizeEmail(email)

	if firstName == "" {
		return nil, apperrors.Validation("firstName", "不能为空")
	}
	if lastName == "" {
		return nil, apperrors.Validation("lastName", "不能为空")
	}
	if err := s.validateEmail(email); err != nil {
		return nil, err
	}
	if !auth.IsStrongPassword(password) {
		return nil, ErrWeakPassword
	}

	// 检查邮箱是否存在
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr("检查邮箱", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	newUser := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hashedPassword,
	}
	// 并发注册同一邮箱时由唯一索引兜底
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, storeErrDup("创建用户", err, ErrEmailInUse)
	}

	s.log.Info("用户已注册", zap.Uint("user", newUser.ID))
	return newUser, nil
}

// Login 处理用户登录逻辑。用户不存在与密码错误返回同一个错误。
func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrInvalidCredentials
	} else if err != nil {
		return "", nil, storeErr("通过邮箱查找用户", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.cfg)
	if err != nil {
		return "", nil, fmt.Errorf("生成令牌失败: %w", err)
	}
	return token, user, nil
}

func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("吊销令牌失败: %w", err)
	}
	s.log.Info("用户已登出", zap.Uint("user", claims.UserID))
	return nil
}

func (s *authService) validateEmail(email string) error {
	if err := s.validate.Var(email, "required,email,max=255"); err != nil {
		return apperrors.Validation("email", "邮箱地址格式无效")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
