package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"im-social/internal/imtypes"
)

const (
	defaultQueueSize = 256
	sendTimeout      = 5 * time.Second
)

// ErrPublishQueueFull 表示发送队列已满，事件被丢弃。
var ErrPublishQueueFull = errors.New("关系事件发送队列已满")

// RelationEventPublisher 将关系事件序列化为 JSON 写入单个 topic。
// 以 ActorID 作为 key，同一用户的事件保持分区内有序。
// PublishRelationEvent 只负责入队，投递报告由后台 goroutine 等待。
type RelationEventPublisher struct {
	producer MessageProducer
	topic    string
	log      *zap.Logger

	queue     chan imtypes.RelationEvent
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewRelationEventPublisher starts the background sender. Call Close before
// closing producer.
func NewRelationEventPublisher(producer MessageProducer, topic string, log *zap.Logger) *RelationEventPublisher {
	p := &RelationEventPublisher{
		producer: producer,
		topic:    topic,
		log:      log.Named("relation-publisher"),
		queue:    make(chan imtypes.RelationEvent, defaultQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *RelationEventPublisher) PublishRelationEvent(ctx context.Context, event imtypes.RelationEvent) error {
	select {
	case <-p.stop:
		return fmt.Errorf("发布关系事件 %s: 发布器已关闭", event.Type)
	default:
	}
	select {
	case p.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrPublishQueueFull
	}
}

// Close 发送完队列中剩余的事件后返回。
func (p *RelationEventPublisher) Close() {
	p.closeOnce.Do(func() { close(p.stop) })
	<-p.done
}

func (p *RelationEventPublisher) run() {
	defer close(p.done)
	for {
		select {
		case event := <-p.queue:
			p.send(event)
		case <-p.stop:
			for {
				select {
				case event := <-p.queue:
					p.send(event)
				default:
					return
				}
			}
		}
	}
}

func (p *RelationEventPublisher) send(event imtypes.RelationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("序列化关系事件失败", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	key := []byte(strconv.FormatUint(uint64(event.ActorID), 10))

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := p.producer.SendMessage(ctx, p.topic, key, payload); err != nil {
		p.log.Warn("关系事件投递失败",
			zap.String("type", string(event.Type)),
			zap.Uint("actor", event.ActorID),
			zap.Error(err))
	}
}
