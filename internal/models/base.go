package models

import (
	"strconv"
	"time"
)

// BaseModel defines the common fields for entity tables.
// 关系表 (好友对、群组成员) 使用复合主键，不嵌入 BaseModel。
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IDString returns the ID as a string.
func (b *BaseModel) IDString() string {
	return strconv.FormatUint(uint64(b.ID), 10)
}
