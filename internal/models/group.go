package models

import "time"

// Group 代表一个聊天群组。最后一个成员离开时群组被删除。
type Group struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定 Group 模型的表名。
func (Group) TableName() string {
	return "groups"
}

// GroupMembership 将用户链接到群组。
// AcceptedInvite 为 false 表示邀请尚未被接受。
type GroupMembership struct {
	UserID         uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	GroupID        uint      `gorm:"primaryKey;autoIncrement:false;index" json:"groupId"`
	AcceptedInvite bool      `gorm:"not null" json:"acceptedInvite"`
	InvitedBy      uint      `json:"invitedBy,omitempty"` // 创建者自己的成员记录为 0
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName 指定 GroupMembership 模型的表名。
func (GroupMembership) TableName() string {
	return "group_memberships"
}
