package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"esurat/backend/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				// 没有 Origin 视为同源请求
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeLetterEvent MessageType = "letter_event"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType `json:"type"`
	LetterID  string      `json:"letterId,omitempty"`
	Event     string      `json:"event,omitempty"`
	Status    string      `json:"status,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client 代表一个WebSocket客户端连接
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	letters map[string]bool // 订阅的公文ID
	mu      sync.RWMutex
	log     *zap.Logger
}

// Hub 管理所有WebSocket连接，按公文ID分发状态事件
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	mu         sync.RWMutex
	log        *zap.Logger
	origins    []string
	nextID     int
}

// NewHub 创建WebSocket中心
func NewHub(allowedOrigins []string, log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		log:        log,
		origins:    allowedOrigins,
	}
}

// Run 运行事件循环，直到上下文取消
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// BroadcastLetterEvent 向订阅了该公文的客户端推送状态事件
func (h *Hub) BroadcastLetterEvent(letterID string, event string, status domain.LetterStatus) {
	msg := &Message{
		Type:      MessageTypeLetterEvent,
		LetterID:  letterID,
		Event:     event,
		Status:    string(status),
		Timestamp: time.Now(),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("websocket broadcast queue full, dropping event",
			zap.String("letter_id", letterID))
	}
}

// HandleConnection gin 路由入口，升级连接并启动读写协程
func (h *Hub) HandleConnection(c *gin.Context) {
	upgrader := upgraderFactory(h.origins)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.nextID++
	id := "ws-" + strconv.Itoa(h.nextID)
	h.mu.Unlock()

	client := &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, 64),
		hub:     h,
		letters: make(map[string]bool),
		log:     h.log,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Hub) deliver(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal websocket message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.subscribed(msg.LetterID) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// 发送缓冲已满，丢弃该客户端的本条消息
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.send)
		_ = client.conn.Close()
		delete(h.clients, id)
	}
}

func (c *Client) subscribed(letterID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.letters[letterID]
}

// readPump 读取客户端的订阅/退订请求
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(Message{Type: MessageTypeError, Error: "invalid message", Timestamp: time.Now()})
			continue
		}

		switch msg.Type {
		case MessageTypeSubscribe:
			if msg.LetterID == "" {
				c.reply(Message{Type: MessageTypeError, Error: "letterId required", Timestamp: time.Now()})
				continue
			}
			c.mu.Lock()
			c.letters[msg.LetterID] = true
			c.mu.Unlock()
			c.reply(Message{Type: MessageTypeSubscribed, LetterID: msg.LetterID, Timestamp: time.Now()})
		case MessageTypeUnsubscribe:
			c.mu.Lock()
			delete(c.letters, msg.LetterID)
			c.mu.Unlock()
		case MessageTypePing:
			c.reply(Message{Type: MessageTypePong, Timestamp: time.Now()})
		}
	}
}

// writePump 将消息写出到连接，并周期性发送 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
