package websocket

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时
	pongWait = 60 * time.Second

	// 发送ping间隔时间，必须小于pongWait
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 512

	// 客户端发送缓冲区大小
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 允许所有跨域请求，生产环境应限制
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PollChecker 校验投票活动是否存在
// 由service层实现，避免websocket包直接依赖存储
type PollChecker interface {
	PollExists(ctx context.Context, pollID uint) (bool, error)
}

// Handler WebSocket处理器
type Handler struct {
	hub   *Hub
	polls PollChecker
}

// NewHandler 创建WebSocket处理器
func NewHandler(hub *Hub, polls PollChecker) *Handler {
	return &Handler{hub: hub, polls: polls}
}

// HandleWebSocketConnection 处理WebSocket连接请求
// 订阅前校验投票活动存在，不存在的活动拒绝订阅
func (h *Handler) HandleWebSocketConnection(c *gin.Context) {
	pollIDStr := c.Param("id")
	pollID, err := strconv.ParseUint(pollIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的投票ID"})
		return
	}

	exists, err := h.polls.PollExists(c.Request.Context(), uint(pollID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据库查询出错"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "投票不存在"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("升级WebSocket连接失败: %v", err)
		return
	}

	client := &Client{
		PollID: uint(pollID),
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}

	h.hub.RegisterClient(client)

	go h.writePump(client)
	go h.readPump(client)

	log.Printf("WebSocket连接已建立 [Poll ID: %d]", pollID)
}

// readPump 从WebSocket连接读取消息
// 客户端只接收推送，读取循环仅用于检测断开和响应pong
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.UnregisterClient(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket读取错误: %v", err)
			}
			break
		}
	}
}

// writePump 向WebSocket连接发送消息
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := client.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并队列中积压的消息
			n := len(client.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-client.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
