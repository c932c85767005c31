package kafkahandlers

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"im-social/internal/imtypes"
)

// Refresher rebuilds the cached views of the given users.
type Refresher interface {
	RefreshUsers(ctx context.Context, userIDs ...uint) error
}

// RelationEventConsumerLogic 把其他实例发布的关系变更转换成本地会话刷新。
type RelationEventConsumerLogic struct {
	refresher Refresher
	log       *zap.Logger
}

// NewRelationEventConsumerLogic creates a new instance of RelationEventConsumerLogic.
func NewRelationEventConsumerLogic(refresher Refresher, log *zap.Logger) *RelationEventConsumerLogic {
	return &RelationEventConsumerLogic{refresher: refresher, log: log.Named("relation-events")}
}

// HandleRelationEvent is the kafka.MessageHandler for the relation events topic.
// Malformed payloads are skipped so they do not block the partition.
func (h *RelationEventConsumerLogic) HandleRelationEvent(ctx context.Context, msg *kafka.Message) error {
	var event imtypes.RelationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.log.Warn("skipping malformed relation event", zap.ByteString("value", msg.Value), zap.Error(err))
		return nil
	}
	if len(event.AffectedUserIDs) == 0 {
		return nil
	}

	h.log.Debug("relation event received",
		zap.String("type", string(event.Type)),
		zap.Uint("actor", event.ActorID),
		zap.Uints("affected", event.AffectedUserIDs))

	return h.refresher.RefreshUsers(ctx, event.AffectedUserIDs...)
}
