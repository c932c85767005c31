package models

import "time"

// MessageKind 区分私聊消息和群聊消息。
type MessageKind string

const (
	DirectMessageKind MessageKind = "direct"
	GroupMessageKind  MessageKind = "group"
)

// Message 代表存储在数据库中的聊天消息。
// TargetID 对私聊是接收者的用户 ID，对群聊是群组 ID。
type Message struct {
	BaseModel
	Kind     MessageKind `gorm:"type:varchar(10);not null;index:idx_message_target,priority:1" json:"kind"`
	SenderID uint        `gorm:"index;not null" json:"senderId"`
	TargetID uint        `gorm:"not null;index:idx_message_target,priority:2" json:"targetId"`
	Content  string      `gorm:"type:text;not null" json:"content"`
	SentAt   time.Time   `gorm:"not null;index" json:"sentAt"`
}

// TableName 指定 Message 模型的表名。
func (Message) TableName() string {
	return "messages"
}
