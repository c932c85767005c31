// Package imtypes 保存跨包共享的消息类型和接口，用于打破 services 与 kafka 之间的循环依赖。
package imtypes

import (
	"context"
	"time"
)

// RelationEventType 标识一次关系变更。
type RelationEventType string

const (
	FriendRequestSent     RelationEventType = "friend_request_sent"
	FriendRequestAccepted RelationEventType = "friend_request_accepted"
	FriendRelationRemoved RelationEventType = "friend_relation_removed"
	GroupCreated          RelationEventType = "group_created"
	GroupInviteSent       RelationEventType = "group_invite_sent"
	GroupInviteAccepted   RelationEventType = "group_invite_accepted"
	GroupMemberLeft       RelationEventType = "group_member_left"
	GroupDeleted          RelationEventType = "group_deleted"
)

// RelationEvent is published after a relation mutation is committed.
// AffectedUserIDs lists the users whose views are now stale.
type RelationEvent struct {
	Type            RelationEventType `json:"type"`
	ActorID         uint              `json:"actorId"`
	TargetID        uint              `json:"targetId,omitempty"`
	GroupID         uint              `json:"groupId,omitempty"`
	AffectedUserIDs []uint            `json:"affectedUserIds"`
	Timestamp       time.Time         `json:"timestamp"`
}

// RelationEventPublisher 发布关系变更事件。实现应当是尽力而为的。
// 调用方可能持有会话锁，实现不能等待 broker 的投递报告。
type RelationEventPublisher interface {
	PublishRelationEvent(ctx context.Context, event RelationEvent) error
}
