package mq

import (
	"fmt"
	"log"

	"evoting-backend/cache"
	"evoting-backend/config"
)

// 队列模式常量
const (
	ModeRocketMQ = "rocketmq"
	ModeRedis    = "redis"
	ModeMemory   = "memory"
)

// Adapter 消息队列适配器
// 按配置选择RocketMQ或Redis MQ，broker不可用时降级为内存模式
// （直接在进程内异步调用处理函数），保证投票主流程永不被broker阻塞
type Adapter struct {
	mode string

	redisMQ  *RedisMQ
	rocketMQ *RocketMQBackend

	processHandler UpdateHandler
}

// NewAdapter 创建消息队列适配器
func NewAdapter(cfg *config.Config, c *cache.Cache) *Adapter {
	a := &Adapter{mode: ModeMemory}

	switch cfg.MQType {
	case ModeRocketMQ:
		backend := NewRocketMQBackend(cfg.RocketMQNameSrv)
		if err := backend.Init(); err != nil {
			log.Printf("RocketMQ初始化失败: %v，降级为内存模式", err)
			return a
		}
		a.rocketMQ = backend
		a.mode = ModeRocketMQ

	case ModeRedis:
		client, err := c.Client()
		if err != nil {
			log.Printf("Redis不可用: %v，消息队列降级为内存模式", err)
			return a
		}
		a.redisMQ = NewRedisMQ(client)
		a.mode = ModeRedis

	default:
		log.Printf("消息队列使用内存模式 (MQ_TYPE=%s)", cfg.MQType)
	}

	return a
}

// RegisterHandler 注册消息处理函数并启动消费者
func (a *Adapter) RegisterHandler(handler UpdateHandler) error {
	a.processHandler = handler

	switch a.mode {
	case ModeRocketMQ:
		a.rocketMQ.RegisterHandler(handler)
		return a.rocketMQ.Start()
	case ModeRedis:
		a.redisMQ.RegisterHandler(handler)
		return a.redisMQ.Start()
	default:
		// 内存模式无消费者进程，发布时直接调用
		return nil
	}
}

// PublishVoteUpdate 发布投票更新事件，实现service.ResultPublisher
// 整个发布过程在独立goroutine中进行，调用方立即返回；
// 发布失败只记录日志，绝不影响已提交的投票
func (a *Adapter) PublishVoteUpdate(pollID uint) {
	go func() {
		msg := newPollUpdateMessage(pollID)

		var err error
		switch a.mode {
		case ModeRocketMQ:
			err = a.rocketMQ.SendPollUpdate(msg)
		case ModeRedis:
			err = a.redisMQ.SendPollUpdate(msg)
		default:
			if a.processHandler == nil {
				err = fmt.Errorf("处理函数未注册")
			} else {
				err = a.processHandler(pollID)
			}
		}

		if err != nil {
			log.Printf("发布投票更新失败 [Poll ID: %d]: %v", pollID, err)
		}
	}()
}

// Mode 返回当前队列模式
func (a *Adapter) Mode() string {
	return a.mode
}

// GetQueueStats 获取队列统计信息
func (a *Adapter) GetQueueStats() map[string]interface{} {
	stats := map[string]interface{}{"type": a.mode}
	if a.mode == ModeRedis {
		stats["queues"] = a.redisMQ.GetQueueStats()
	}
	return stats
}

// Close 关闭消息队列
func (a *Adapter) Close() {
	switch a.mode {
	case ModeRocketMQ:
		a.rocketMQ.Stop()
	case ModeRedis:
		a.redisMQ.Stop()
	}
	log.Println("消息队列已关闭")
}
