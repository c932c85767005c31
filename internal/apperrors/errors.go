// Package apperrors 定义了关系引擎对外暴露的错误类型。
// 调用方应使用 errors.Is / errors.As 判断错误种类。
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRelation = errors.New("不能与自己建立关系")
	ErrAlreadyRelated  = errors.New("好友关系或请求已存在")
	ErrAlreadyMember   = errors.New("用户已在群组中或已被邀请")
	ErrNotFound        = errors.New("记录不存在")
	ErrValidation      = errors.New("输入无效")
	ErrDataInvariant   = errors.New("数据不变量被破坏")
	ErrStorage         = errors.New("存储错误")
	ErrUnauthorized    = errors.New("认证失败")
	ErrForbidden       = errors.New("无权执行此操作")
)

// StorageError wraps a failure returned by the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage wraps err as a StorageError for op. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// DataInvariantViolation reports a friend relation whose two accept flags are both false.
type DataInvariantViolation struct {
	LoUserID uint
	HiUserID uint
}

func (e *DataInvariantViolation) Error() string {
	return fmt.Sprintf("好友关系 (%d, %d) 双方均未接受", e.LoUserID, e.HiUserID)
}

func (e *DataInvariantViolation) Is(target error) bool { return target == ErrDataInvariant }

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation is shorthand for &ValidationError{Field: field, Reason: reason}.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
