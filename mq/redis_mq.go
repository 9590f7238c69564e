package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// 消息队列的队列名称常量
const (
	MainQueueName       = "poll_update_queue"       // 主队列
	ProcessingQueueName = "poll_update_processing"  // 处理中队列
	DeadLetterQueueName = "poll_update_dead_letter" // 死信队列
	RetriesHashName     = "poll_update_retries"     // 重试次数记录
)

// RedisMQ 是基于Redis List实现的消息队列
// 生命周期为一次性：Stop之后不支持再次Start
type RedisMQ struct {
	client         *redis.Client
	ctx            context.Context
	processHandler UpdateHandler

	mu        sync.Mutex // 保护isRunning
	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup

	retryDelay time.Duration // 重试延迟
	maxRetries int           // 最大重试次数
}

// NewRedisMQ 创建新的基于Redis的消息队列
func NewRedisMQ(redisClient *redis.Client) *RedisMQ {
	return &RedisMQ{
		client:     redisClient,
		ctx:        context.Background(),
		stopChan:   make(chan struct{}),
		retryDelay: 5 * time.Second,
		maxRetries: 3,
	}
}

// RegisterHandler 注册消息处理函数
func (r *RedisMQ) RegisterHandler(handler UpdateHandler) {
	r.processHandler = handler
}

// SendPollUpdate 发送投票更新消息到主队列
func (r *RedisMQ) SendPollUpdate(msg PollUpdateMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	if err := r.client.LPush(r.ctx, MainQueueName, jsonData).Err(); err != nil {
		return fmt.Errorf("发送消息到队列失败: %w", err)
	}

	return nil
}

// Start 启动消费者，重复调用为空操作
func (r *RedisMQ) Start() error {
	if r.processHandler == nil {
		return fmt.Errorf("处理函数未注册")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return nil
	}

	r.isRunning = true
	r.wg.Add(1)
	go r.consumeLoop()

	log.Println("Redis消息队列消费者已启动")
	return nil
}

// Stop 关闭消费者，可安全重复调用
func (r *RedisMQ) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return
	}

	close(r.stopChan)
	r.wg.Wait()
	r.isRunning = false
	log.Println("Redis消息队列消费者已关闭")
}

// consumeLoop 主消费循环
// BRPopLPush原子地把消息从主队列移入处理中队列，处理完成后移除
func (r *RedisMQ) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopChan:
			return
		default:
			result, err := r.client.BRPopLPush(r.ctx, MainQueueName, ProcessingQueueName, 1*time.Second).Result()
			if err != nil {
				if err != redis.Nil {
					log.Printf("从队列获取消息失败: %v", err)
				}
				continue
			}

			r.processMessage(result)
		}
	}
}

// processMessage 处理单个消息，失败时延迟重试，超过次数移入死信队列
func (r *RedisMQ) processMessage(msgData string) {
	defer r.client.LRem(r.ctx, ProcessingQueueName, 1, msgData)

	var msg PollUpdateMessage
	if err := json.Unmarshal([]byte(msgData), &msg); err != nil {
		log.Printf("解析消息失败: %v", err)
		r.client.LPush(r.ctx, DeadLetterQueueName, msgData)
		return
	}

	if err := r.processHandler(msg.PollID); err != nil {
		log.Printf("处理消息失败 [Poll ID: %d]: %v", msg.PollID, err)

		retries, _ := r.client.HGet(r.ctx, RetriesHashName, msg.MessageID).Int()
		if retries >= r.maxRetries {
			log.Printf("消息 %s 超过最大重试次数，移至死信队列", msg.MessageID)
			r.client.LPush(r.ctx, DeadLetterQueueName, msgData)
			return
		}

		r.client.HIncrBy(r.ctx, RetriesHashName, msg.MessageID, 1)
		time.AfterFunc(r.retryDelay, func() {
			r.client.LPush(r.ctx, MainQueueName, msgData)
		})
	}
}

// RetryDeadLetters 将死信队列中的消息移回主队列重新处理
func (r *RedisMQ) RetryDeadLetters() error {
	messages, err := r.client.LRange(r.ctx, DeadLetterQueueName, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("获取死信队列消息失败: %w", err)
	}

	count := 0
	for _, msgData := range messages {
		if err := r.client.LPush(r.ctx, MainQueueName, msgData).Err(); err != nil {
			log.Printf("重新入队消息失败: %v", err)
			continue
		}
		r.client.LRem(r.ctx, DeadLetterQueueName, 1, msgData)

		var msg PollUpdateMessage
		if json.Unmarshal([]byte(msgData), &msg) == nil {
			r.client.HDel(r.ctx, RetriesHashName, msg.MessageID)
		}
		count++
	}

	log.Printf("成功将 %d 条消息从死信队列移回主队列", count)
	return nil
}

// GetQueueStats 获取各队列的消息数量统计
func (r *RedisMQ) GetQueueStats() map[string]int64 {
	stats := make(map[string]int64)

	mainLen, _ := r.client.LLen(r.ctx, MainQueueName).Result()
	procLen, _ := r.client.LLen(r.ctx, ProcessingQueueName).Result()
	deadLen, _ := r.client.LLen(r.ctx, DeadLetterQueueName).Result()

	stats["main_queue"] = mainLen
	stats["processing_queue"] = procLen
	stats["dead_letter_queue"] = deadLen

	return stats
}
