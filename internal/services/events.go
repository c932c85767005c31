package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"im-social/internal/imtypes"
)

// eventNotifier 尽力发布关系事件：失败只记录日志，不影响已提交的变更。
type eventNotifier struct {
	publisher imtypes.RelationEventPublisher
	log       *zap.Logger
}

func (n eventNotifier) notify(ctx context.Context, eventType imtypes.RelationEventType, actor, target, group uint, affected ...uint) {
	if n.publisher == nil {
		return
	}
	event := imtypes.RelationEvent{
		Type:            eventType,
		ActorID:         actor,
		TargetID:        target,
		GroupID:         group,
		AffectedUserIDs: affected,
		Timestamp:       time.Now().UTC(),
	}
	// 发布器只负责入队，这里不会等待 broker
	if err := n.publisher.PublishRelationEvent(context.WithoutCancel(ctx), event); err != nil {
		n.log.Warn("发布关系事件失败",
			zap.String("type", string(eventType)),
			zap.Uint("actor", actor),
			zap.Error(err))
	}
}
