package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// 用户角色常量
const (
	RoleVoter = "voter"
	RoleAdmin = "admin"
)

// User 用户模型
// 注册时生成钱包地址和私钥，仅作存储，后续业务不使用
type User struct {
	gorm.Model
	Username          string `gorm:"uniqueIndex;not null" json:"username"`
	Password          string `gorm:"not null" json:"-"` // bcrypt哈希
	VoterAddress      string `gorm:"not null" json:"voter_address"`
	PrivateKey        string `gorm:"not null" json:"-"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	Role              string `gorm:"not null;default:voter" json:"role"`
}

// Poll 投票活动模型
type Poll struct {
	gorm.Model
	Title        string      `gorm:"not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	IsActive     bool        `gorm:"default:true" json:"is_active"`
	PollImageURL string      `json:"poll_image_url,omitempty"`
	Candidates   []Candidate `gorm:"foreignKey:PollID" json:"candidates"`
}

// Candidate 候选人模型，按插入顺序（自增ID）排列
type Candidate struct {
	gorm.Model
	PollID   uint   `gorm:"not null;index" json:"poll_id"`
	Name     string `gorm:"not null" json:"name"`
	Party    string `json:"party,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Vote 投票记录模型
// (username, poll_id)组合唯一索引在存储层保证一人一票
type Vote struct {
	gorm.Model
	Username    string `gorm:"not null;uniqueIndex:idx_votes_user_poll" json:"username"`
	PollID      uint   `gorm:"not null;uniqueIndex:idx_votes_user_poll" json:"poll_id"`
	CandidateID uint   `gorm:"not null" json:"candidate_id"`
}

// RegisterInput 用户注册请求
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginInput 用户登录请求
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreatePollInput 创建投票请求
type CreatePollInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// UpdatePollInput 更新投票请求，指针字段区分"未提供"和零值
type UpdatePollInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// AddCandidateInput 添加候选人请求
type AddCandidateInput struct {
	Name  string `json:"name" binding:"required"`
	Party string `json:"party"`
}

// CastVoteInput 投票请求
type CastVoteInput struct {
	CandidateID uint `json:"candidate_id" binding:"required"`
}

// CandidateTally 单个候选人的计票结果
type CandidateTally struct {
	CandidateID uint   `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party,omitempty"`
	Votes       int64  `json:"votes"`
}

// PollResults 投票活动的实时计票快照
type PollResults struct {
	PollID     uint             `json:"poll_id"`
	Title      string           `json:"title"`
	IsActive   bool             `json:"is_active"`
	TotalVotes int64            `json:"total_votes"`
	Tally      []CandidateTally `json:"tally"`
}

// MessageTypeVoteUpdate 投票更新消息类型
const MessageTypeVoteUpdate = "VOTE_UPDATE"

// WebSocketMessage 定义WebSocket消息格式
type WebSocketMessage struct {
	Type    string      `json:"type"`
	PollID  uint        `json:"poll_id"`
	Payload interface{} `json:"payload"`
}

// ToJSON 将WebSocket消息转换为JSON字节数组
func (m *WebSocketMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
