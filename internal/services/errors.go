package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"im-social/internal/apperrors"
)

var (
	ErrEmailInUse         = errors.New("邮箱地址已被使用")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrWeakPassword       = apperrors.Validation("password", "至少 8 位，且包含大写字母、小写字母、数字和特殊字符")
)

// storeErr 把仓库返回的错误归类：记录不存在映射为 ErrNotFound，其余包装为 StorageError。
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
	}
	return apperrors.Storage(op, err)
}

// storeErrDup 与 storeErr 相同，但把唯一键冲突映射为 dup。
func storeErrDup(op string, err error, dup error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, dup)
	}
	return storeErr(op, err)
}
