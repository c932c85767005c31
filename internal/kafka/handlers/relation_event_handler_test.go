package kafkahandlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"im-social/internal/imtypes"
)

type recordingRefresher struct {
	calls [][]uint
	err   error
}

func (r *recordingRefresher) RefreshUsers(_ context.Context, ids ...uint) error {
	r.calls = append(r.calls, ids)
	return r.err
}

func message(t *testing.T, value []byte) *kafka.Message {
	t.Helper()
	topic := "im-relation-events"
	return &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}, Value: value}
}

func TestHandleRelationEvent(t *testing.T) {
	ref := &recordingRefresher{}
	h := NewRelationEventConsumerLogic(ref, zap.NewNop())

	payload, err := json.Marshal(imtypes.RelationEvent{
		Type:            imtypes.FriendRequestAccepted,
		ActorID:         2,
		TargetID:        1,
		AffectedUserIDs: []uint{2, 1},
		Timestamp:       time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleRelationEvent(context.Background(), message(t, payload)))
	require.Len(t, ref.calls, 1)
	assert.Equal(t, []uint{2, 1}, ref.calls[0])
}

func TestHandleRelationEvent_Malformed(t *testing.T) {
	ref := &recordingRefresher{}
	h := NewRelationEventConsumerLogic(ref, zap.NewNop())

	assert.NoError(t, h.HandleRelationEvent(context.Background(), message(t, []byte("{not json"))))
	assert.Empty(t, ref.calls)
}

func TestHandleRelationEvent_RefreshError(t *testing.T) {
	ref := &recordingRefresher{err: errors.New("db down")}
	h := NewRelationEventConsumerLogic(ref, zap.NewNop())

	payload, err := json.Marshal(imtypes.RelationEvent{Type: imtypes.GroupDeleted, ActorID: 1, AffectedUserIDs: []uint{1}})
	require.NoError(t, err)
	// 返回错误，offset 不提交
	assert.Error(t, h.HandleRelationEvent(context.Background(), message(t, payload)))
}
