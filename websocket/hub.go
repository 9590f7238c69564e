package websocket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"evoting-backend/models"
)

// Client 代表一个WebSocket连接客户端
type Client struct {
	// 订阅的投票活动ID
	PollID uint

	// WebSocket连接
	conn *websocket.Conn

	// 消息发送通道
	send chan []byte
}

// Hub 维护按投票活动分组的活跃客户端集合并负责广播
// 实例由main注入各组件，不使用包级全局状态
type Hub struct {
	// 已注册的客户端，按投票活动ID分组
	clients map[uint]map[*Client]bool

	// 注册请求
	register chan *Client

	// 注销请求
	unregister chan *Client

	// 互斥锁保护clients map
	mu sync.RWMutex
}

// NewHub 创建一个新的Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run 启动Hub消息处理循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.PollID]; !ok {
				h.clients[client.PollID] = make(map[*Client]bool)
			}
			h.clients[client.PollID][client] = true
			count := len(h.clients[client.PollID])
			h.mu.Unlock()
			log.Printf("WebSocket客户端已注册 [Poll ID: %d, 连接数: %d]", client.PollID, count)

		case client := <-h.unregister:
			h.removeClient(client.PollID, client)
			log.Printf("WebSocket客户端已注销 [Poll ID: %d]", client.PollID)
		}
	}
}

// BroadcastToPoll 向特定投票活动的所有订阅客户端广播消息
// 发送在读锁内进行：通道关闭只发生在写锁内，二者不会交错，
// 并发注销时广播不会写入已关闭的通道。
// 发送缓冲区已满的客户端视为掉线，广播后从注册表中剔除
func (h *Hub) BroadcastToPoll(pollID uint, message *models.WebSocketMessage) {
	payload, err := message.ToJSON()
	if err != nil {
		log.Printf("序列化广播消息失败: %v", err)
		return
	}

	var stale []*Client
	delivered := 0

	h.mu.RLock()
	for client := range h.clients[pollID] {
		select {
		case client.send <- payload:
			delivered++
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.removeClient(pollID, client)
	}

	if delivered > 0 {
		log.Printf("广播更新到 %d 个WebSocket客户端 [Poll ID: %d]", delivered, pollID)
	}
}

// ClosePoll 注销并关闭某投票活动的全部订阅客户端
// 投票活动被删除后调用，写入端关闭send通道使writePump发出关闭帧
func (h *Hub) ClosePoll(pollID uint) {
	h.mu.Lock()
	clients := h.clients[pollID]
	delete(h.clients, pollID)
	for client := range clients {
		close(client.send)
	}
	h.mu.Unlock()

	if len(clients) > 0 {
		log.Printf("投票已删除，断开 %d 个WebSocket客户端 [Poll ID: %d]", len(clients), pollID)
	}
}

// removeClient 从注册表中剔除客户端并关闭其发送通道
// 客户端不在注册表时为空操作，注销和广播剔除可安全并发
func (h *Hub) removeClient(pollID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[pollID][client]; !ok {
		return
	}
	delete(h.clients[pollID], client)
	close(client.send)
	if len(h.clients[pollID]) == 0 {
		delete(h.clients, pollID)
	}
}

// RegisterClient 注册客户端到Hub
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient 从Hub中注销客户端，可重复调用
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// SubscriberCount 返回指定投票活动当前的订阅数
func (h *Hub) SubscriberCount(pollID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[pollID])
}
