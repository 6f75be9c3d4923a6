package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/qianlnk/undercover/models"
)

const (
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
	maxFailures  = 3
	readLimit    = 64 * 1024
)

// ActionHandler 处理玩家通过 websocket 发来的动作
type ActionHandler interface {
	ProcessAction(ctx context.Context, action models.GameAction) (models.GameStatus, error)
}

// Message WebSocket消息结构
type Message struct {
	Type    string          `json:"type"`
	ChatID  string          `json:"chat_id,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// client 一个玩家在一个群聊中的连接，gorilla 连接不允许并发写
type client struct {
	conn         *websocket.Conn
	chatID       string
	playerID     string
	connectionID string
	writeMu      sync.Mutex
	done         chan struct{}
	closeOnce    sync.Once
}

func (c *client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(100*time.Millisecond))
		c.writeMu.Unlock()
		c.conn.Close()
	})
}

// WebSocketManager WebSocket连接管理器
type WebSocketManager struct {
	chats   map[string]map[string]*client // chatID -> playerID -> client
	mutex   sync.RWMutex
	handler ActionHandler

	tokens  map[string]map[string]string // chatID -> playerID -> token
	tokenMu sync.Mutex
}

// NewWebSocketManager 创建WebSocket管理器实例
func NewWebSocketManager(handler ActionHandler) *WebSocketManager {
	return &WebSocketManager{
		chats:   make(map[string]map[string]*client),
		handler: handler,
		tokens:  make(map[string]map[string]string),
	}
}

// IssueToken 生成玩家在群聊中的连接凭证，之前的凭证失效
// 凭证由聊天适配层通过 HTTP 获取后私发给玩家
func (wm *WebSocketManager) IssueToken(chatID, playerID string) string {
	token := uuid.NewString()

	wm.tokenMu.Lock()
	defer wm.tokenMu.Unlock()
	players, exists := wm.tokens[chatID]
	if !exists {
		players = make(map[string]string)
		wm.tokens[chatID] = players
	}
	players[playerID] = token
	return token
}

// Authorize 校验连接凭证
func (wm *WebSocketManager) Authorize(chatID, playerID, token string) bool {
	if token == "" {
		return false
	}
	wm.tokenMu.Lock()
	expected, exists := wm.tokens[chatID][playerID]
	wm.tokenMu.Unlock()
	return exists && subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

// RegisterConnection 注册新的WebSocket连接，同一玩家在同一群聊的旧连接会被关闭
func (wm *WebSocketManager) RegisterConnection(chatID, playerID, connectionID string, conn *websocket.Conn) {
	c := &client{
		conn:         conn,
		chatID:       chatID,
		playerID:     playerID,
		connectionID: connectionID,
		done:         make(chan struct{}),
	}

	wm.mutex.Lock()
	players, exists := wm.chats[chatID]
	if !exists {
		players = make(map[string]*client)
		wm.chats[chatID] = players
	}
	old := players[playerID]
	players[playerID] = c
	wm.mutex.Unlock()

	if old != nil {
		log.Printf("[websocket] chat %s: replacing connection %s of %s", chatID, old.connectionID, playerID)
		old.close()
	}
	log.Printf("[websocket] chat %s: %s connected (%s)", chatID, playerID, connectionID)

	go wm.handleMessages(c)
	go wm.startPingHandler(c)
}

// RemoveConnection 移除连接，只移除仍然是当前连接的那一个
func (wm *WebSocketManager) RemoveConnection(chatID, playerID, connectionID string) {
	wm.mutex.Lock()
	c, exists := wm.chats[chatID][playerID]
	if !exists || c.connectionID != connectionID {
		wm.mutex.Unlock()
		return
	}
	delete(wm.chats[chatID], playerID)
	if len(wm.chats[chatID]) == 0 {
		delete(wm.chats, chatID)
	}
	wm.mutex.Unlock()

	c.close()
	log.Printf("[websocket] chat %s: %s disconnected (%s)", chatID, playerID, connectionID)
}

// ConnectionCount 群聊中在线的连接数
func (wm *WebSocketManager) ConnectionCount(chatID string) int {
	wm.mutex.RLock()
	defer wm.mutex.RUnlock()
	return len(wm.chats[chatID])
}

// BroadcastToChat 向群聊中所有在线玩家广播
func (wm *WebSocketManager) BroadcastToChat(chatID string, message interface{}) {
	wm.mutex.RLock()
	clients := make([]*client, 0, len(wm.chats[chatID]))
	for _, c := range wm.chats[chatID] {
		clients = append(clients, c)
	}
	wm.mutex.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			log.Printf("[websocket] chat %s: broadcast to %s failed: %v", chatID, c.playerID, err)
		}
	}
}

// SendToPlayer 私信，玩家不在线时丢弃
func (wm *WebSocketManager) SendToPlayer(chatID, playerID string, message interface{}) {
	if err := wm.sendPrivate(chatID, playerID, message); err != nil {
		log.Printf("[websocket] chat %s: private message to %s dropped: %v", chatID, playerID, err)
	}
}

func (wm *WebSocketManager) sendPrivate(chatID, playerID string, message interface{}) error {
	wm.mutex.RLock()
	c, exists := wm.chats[chatID][playerID]
	wm.mutex.RUnlock()
	if !exists {
		return errors.New("player not connected")
	}
	content, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.writeJSON(Message{Type: "private", ChatID: chatID, Content: content})
}

// startPingHandler 心跳检测，连续失败后断开
func (wm *WebSocketManager) startPingHandler(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				failures++
				log.Printf("[websocket] chat %s: ping %s failed (%d/%d): %v", c.chatID, c.playerID, failures, maxFailures, err)
				if failures >= maxFailures {
					wm.RemoveConnection(c.chatID, c.playerID, c.connectionID)
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// handleMessages 读取并处理玩家发来的消息
func (wm *WebSocketManager) handleMessages(c *client) {
	defer wm.RemoveConnection(c.chatID, c.playerID, c.connectionID)
	c.conn.SetReadLimit(readLimit)

	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] chat %s: read from %s failed: %v", c.chatID, c.playerID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(p, &msg); err != nil {
			wm.replyError(c, "malformed message")
			continue
		}

		switch msg.Type {
		case "game_action":
			var action models.GameAction
			if err := json.Unmarshal(msg.Content, &action); err != nil {
				wm.replyError(c, "malformed game action")
				continue
			}
			// 身份以连接为准，管理员权限只能由聊天适配层通过 HTTP 授予
			action.ChatID = c.chatID
			action.PlayerID = c.playerID
			action.IsAdmin = false
			if action.Timestamp == 0 {
				action.Timestamp = time.Now().Unix()
			}
			if wm.handler == nil {
				wm.replyError(c, "game actions are not available")
				continue
			}
			if _, err := wm.handler.ProcessAction(context.Background(), action); err != nil {
				wm.replyError(c, err.Error())
			}
		case "ping":
			_ = c.writeJSON(map[string]interface{}{"type": "pong"})
		default:
			log.Printf("[websocket] chat %s: unknown message type %q from %s", c.chatID, msg.Type, c.playerID)
			wm.replyError(c, "unknown message type")
		}
	}
}

func (wm *WebSocketManager) replyError(c *client, message string) {
	if err := c.writeJSON(map[string]interface{}{"type": "error", "message": message}); err != nil {
		log.Printf("[websocket] chat %s: error reply to %s failed: %v", c.chatID, c.playerID, err)
	}
}
