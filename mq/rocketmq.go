package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
)

// 主题常量
const (
	TopicPollUpdates = "poll_update_events"

	producerGroup = "poll_update_producer"
	consumerGroup = "poll_update_consumer"
)

// RocketMQBackend 基于RocketMQ的消息队列后端
type RocketMQBackend struct {
	nameSrvAddr string

	producer rocketmq.Producer
	consumer rocketmq.PushConsumer

	processHandler UpdateHandler

	// 幂等性处理：已消费消息ID集合
	processed   map[string]bool
	processedMu sync.Mutex
}

// NewRocketMQBackend 创建RocketMQ后端
func NewRocketMQBackend(nameSrvAddr string) *RocketMQBackend {
	return &RocketMQBackend{
		nameSrvAddr: nameSrvAddr,
		processed:   make(map[string]bool),
	}
}

// Init 初始化生产者
func (b *RocketMQBackend) Init() error {
	p, err := rocketmq.NewProducer(
		producer.WithNameServer([]string{b.nameSrvAddr}),
		producer.WithGroupName(producerGroup),
		producer.WithRetry(2),
		producer.WithSendMsgTimeout(10*time.Second),
		producer.WithVIPChannel(false),
	)
	if err != nil {
		return fmt.Errorf("创建RocketMQ生产者失败: %w", err)
	}

	if err := p.Start(); err != nil {
		return fmt.Errorf("启动RocketMQ生产者失败: %w", err)
	}

	b.producer = p
	log.Printf("RocketMQ生产者已启动, NameServer: %s", b.nameSrvAddr)
	return nil
}

// RegisterHandler 注册消息处理函数
func (b *RocketMQBackend) RegisterHandler(handler UpdateHandler) {
	b.processHandler = handler
}

// SendPollUpdate 发送投票更新消息
// 以投票ID作为分区键，保证同一投票活动的更新顺序消费
func (b *RocketMQBackend) SendPollUpdate(msg PollUpdateMessage) error {
	if b.producer == nil {
		return fmt.Errorf("RocketMQ生产者未初始化")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	message := primitive.NewMessage(TopicPollUpdates, body)
	message.WithTag("poll_update")
	message.WithKeys([]string{msg.MessageID})
	message.WithShardingKey(fmt.Sprintf("%d", msg.PollID))

	res, err := b.producer.SendSync(context.Background(), message)
	if err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}

	log.Printf("RocketMQ消息发送成功, MsgID: %s, Poll ID: %d", res.MsgID, msg.PollID)
	return nil
}

// Start 启动消费者
func (b *RocketMQBackend) Start() error {
	if b.processHandler == nil {
		return fmt.Errorf("处理函数未注册")
	}

	c, err := rocketmq.NewPushConsumer(
		consumer.WithNameServer([]string{b.nameSrvAddr}),
		consumer.WithGroupName(consumerGroup),
		consumer.WithConsumerModel(consumer.Clustering),
	)
	if err != nil {
		return fmt.Errorf("创建RocketMQ消费者失败: %w", err)
	}

	err = c.Subscribe(TopicPollUpdates, consumer.MessageSelector{},
		func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
			for _, m := range msgs {
				var msg PollUpdateMessage
				if err := json.Unmarshal(m.Body, &msg); err != nil {
					log.Printf("解析RocketMQ消息失败: %v", err)
					continue
				}

				if b.alreadyProcessed(msg.MessageID) {
					log.Printf("消息已处理过，跳过: %s", msg.MessageID)
					continue
				}

				if err := b.processHandler(msg.PollID); err != nil {
					log.Printf("处理RocketMQ消息失败 [Poll ID: %d]: %v", msg.PollID, err)
					return consumer.ConsumeRetryLater, nil
				}

				b.markProcessed(msg.MessageID)
			}
			return consumer.ConsumeSuccess, nil
		})
	if err != nil {
		return fmt.Errorf("订阅主题失败: %w", err)
	}

	if err := c.Start(); err != nil {
		return fmt.Errorf("启动RocketMQ消费者失败: %w", err)
	}

	b.consumer = c
	log.Println("RocketMQ消费者已启动")
	return nil
}

// Stop 关闭生产者和消费者
func (b *RocketMQBackend) Stop() {
	if b.consumer != nil {
		if err := b.consumer.Shutdown(); err != nil {
			log.Printf("关闭RocketMQ消费者失败: %v", err)
		}
	}
	if b.producer != nil {
		if err := b.producer.Shutdown(); err != nil {
			log.Printf("关闭RocketMQ生产者失败: %v", err)
		}
	}
}

func (b *RocketMQBackend) alreadyProcessed(messageID string) bool {
	b.processedMu.Lock()
	defer b.processedMu.Unlock()
	return b.processed[messageID]
}

func (b *RocketMQBackend) markProcessed(messageID string) {
	b.processedMu.Lock()
	defer b.processedMu.Unlock()
	b.processed[messageID] = true
}
