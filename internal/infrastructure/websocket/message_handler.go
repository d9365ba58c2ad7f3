package websocket

import (
	"encoding/json"
	"time"

	"taskmate/internal/infrastructure/realtime"
	"taskmate/internal/usecase"
	"taskmate/pkg/logger"
)

// WSMessage is the frame envelope spoken on the wire, both directions.
type WSMessage struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// Bind attaches the chat usecase after construction. The manager is built
// first because the usecase needs it as its publisher.
func (m *Manager) Bind(chats *usecase.ChatUseCase) {
	m.chats = chats
}

// HandleClientMessage dispatches one inbound frame from a client session.
func (m *Manager) HandleClientMessage(c *Client, raw []byte) {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.sendError(c, "", "Invalid message format")
		return
	}

	switch msg.Type {
	case "ping":
		m.sendJSON(c, WSMessage{Type: "pong", Timestamp: time.Now().Unix()})

	case "join_chat_room":
		m.handleJoin(c, msg.ChatID)

	case "leave_chat_room":
		m.handleLeave(c, msg.ChatID)

	case "mark_read":
		m.handleMarkRead(c, msg.ChatID)

	default:
		m.sendError(c, msg.ChatID, "Unknown message type: "+msg.Type)
	}
}

func (m *Manager) handleJoin(c *Client, chatID string) {
	if chatID == "" {
		m.sendError(c, chatID, "chat_id is required")
		return
	}

	// Only participants may open a room's live feed.
	if _, err := m.chats.GetChatByID(c.ctx, c.UserID, chatID); err != nil {
		logger.Warn("Join denied for user %s on chat %s: %v", c.UserID, chatID, err)
		m.sendError(c, chatID, "Chat not accessible")
		return
	}

	onMessage := func(event realtime.MessageEvent) {
		payload, err := json.Marshal(WSMessage{
			Type:   "message",
			ChatID: chatID,
			Data: map[string]interface{}{
				"message": event.Message,
				"sender":  event.Sender,
			},
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			return
		}
		c.enqueue(payload)
	}

	onPresence := func(userID string, online bool) {
		payload, err := json.Marshal(WSMessage{
			Type:   "user_presence",
			ChatID: chatID,
			Data: map[string]interface{}{
				"user_id": userID,
				"online":  online,
			},
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			return
		}
		c.enqueue(payload)
	}

	if err := c.Subs.Subscribe(c.ctx, chatID, onMessage, onPresence); err != nil {
		logger.Error("Subscribe failed for user %s on chat %s: %v", c.UserID, chatID, err)
		m.sendError(c, chatID, "Failed to subscribe to chat")
		return
	}

	m.joinRoom(chatID, c.UserID)
	m.sendJSON(c, WSMessage{Type: "room_joined", ChatID: chatID, Timestamp: time.Now().Unix()})
}

func (m *Manager) handleLeave(c *Client, chatID string) {
	if chatID == "" {
		m.sendError(c, chatID, "chat_id is required")
		return
	}

	c.Subs.Unsubscribe(chatID)
	m.leaveRoom(chatID, c.UserID)
	m.sendJSON(c, WSMessage{Type: "room_left", ChatID: chatID, Timestamp: time.Now().Unix()})
}

func (m *Manager) handleMarkRead(c *Client, chatID string) {
	if chatID == "" {
		m.sendError(c, chatID, "chat_id is required")
		return
	}

	if err := m.chats.MarkChatRead(c.ctx, c.UserID, chatID); err != nil {
		logger.Warn("Mark read failed for user %s on chat %s: %v", c.UserID, chatID, err)
		m.sendError(c, chatID, "Failed to mark chat as read")
		return
	}

	m.sendJSON(c, WSMessage{Type: "read_marked", ChatID: chatID, Timestamp: time.Now().Unix()})
}

func (m *Manager) sendJSON(c *Client, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (m *Manager) sendError(c *Client, chatID, detail string) {
	m.sendJSON(c, WSMessage{
		Type:      "error",
		ChatID:    chatID,
		Data:      map[string]interface{}{"error": detail},
		Timestamp: time.Now().Unix(),
	})
}
