package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"im-social/internal/config"
)

// MessageHandler is a function type for processing consumed Kafka messages.
// Returning nil commits the offset.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error
	Close()
}

// confluentKafkaConsumer is an implementation of MessageConsumer using confluent-kafka-go.
type confluentKafkaConsumer struct {
	consumer *kafka.Consumer
	cfg      config.KafkaConfig
	groupID  string
	log      *zap.Logger
}

// NewConfluentKafkaConsumer creates a consumer; the underlying client is built in Consume.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig, log *zap.Logger) MessageConsumer {
	return &confluentKafkaConsumer{cfg: cfg, log: log.Named("kafka-consumer")}
}

// Consume blocks until ctx is canceled or a fatal Kafka error occurs.
func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	c.groupID = groupID

	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(c.cfg.Brokers, ","),
		"group.id":           groupID,
		"auto.offset.reset":  "latest", // 刷新提示只关心新事件
		"enable.auto.commit": "false",
		"security.protocol":  c.cfg.Protocol,
	}
	if c.cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", c.cfg.ClientID)
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", groupID, err)
	}
	c.consumer = consumer

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		_ = c.consumer.Close()
		c.consumer = nil
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, groupID, err)
	}

	log := c.log.With(zap.String("group", groupID))
	log.Info("Kafka consumer started", zap.Strings("topics", topics))

	for {
		select {
		case <-ctx.Done():
			log.Info("context canceled, stopping consumer")
			return nil
		default:
		}

		ev := c.consumer.Poll(1000)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			fields := []zap.Field{zap.String("topic", *e.TopicPartition.Topic), zap.Stringer("offset", e.TopicPartition.Offset)}
			if err := handler(ctx, e); err != nil {
				log.Error("error processing Kafka message", append(fields, zap.Error(err))...)
				continue
			}
			if _, err := c.consumer.CommitMessage(e); err != nil {
				log.Warn("failed to commit offset", append(fields, zap.Error(err))...)
			}
		case kafka.Error:
			log.Error("Kafka consumer error", zap.Error(e), zap.Bool("fatal", e.IsFatal()))
			if e.IsFatal() {
				return e
			}
		case kafka.AssignedPartitions:
			log.Info("partitions assigned", zap.Int("count", len(e.Partitions)))
			_ = c.consumer.Assign(e.Partitions)
		case kafka.RevokedPartitions:
			log.Info("partitions revoked", zap.Int("count", len(e.Partitions)))
			_ = c.consumer.Unassign()
		}
	}
}

// Close closes the Kafka consumer.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer == nil {
		return
	}
	if err := c.consumer.Close(); err != nil {
		c.log.Error("error closing Kafka consumer", zap.String("group", c.groupID), zap.Error(err))
	}
	c.consumer = nil
}
