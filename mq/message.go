package mq

import (
	"time"

	"github.com/google/uuid"
)

// UpdateHandler 投票更新消息的处理函数
type UpdateHandler func(pollID uint) error

// PollUpdateMessage 表示投票更新消息结构
type PollUpdateMessage struct {
	PollID    uint   `json:"poll_id"`
	Timestamp int64  `json:"timestamp"`
	MessageID string `json:"message_id"` // 用于幂等性处理
}

// newPollUpdateMessage 构造带唯一消息ID的更新消息
func newPollUpdateMessage(pollID uint) PollUpdateMessage {
	return PollUpdateMessage{
		PollID:    pollID,
		Timestamp: time.Now().Unix(),
		MessageID: uuid.New().String(),
	}
}
