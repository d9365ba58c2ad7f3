package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"taskmate/internal/infrastructure/realtime"
	"taskmate/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one websocket session. Its SubscriptionManager owns the store
// feeds opened on behalf of this session and dies with it.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	Subs   *realtime.SubscriptionManager

	ctx    context.Context
	cancel context.CancelFunc
	closed sync.Once
}

func NewClient(ctx context.Context, userID string, conn *websocket.Conn, subs *realtime.SubscriptionManager) *Client {
	sessionCtx, cancel := context.WithCancel(ctx)
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Subs:   subs,
		ctx:    sessionCtx,
		cancel: cancel,
	}
}

// enqueue hands a payload to the write pump without blocking; a session that
// cannot keep up loses the frame rather than stalling the publisher.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.Send <- payload:
	default:
		logger.Warn("Dropping frame for slow client %s", c.UserID)
	}
}

// teardown cancels the session context and every feed it owns. Safe to call
// more than once.
func (c *Client) teardown() {
	c.closed.Do(func() {
		c.cancel()
		c.Subs.UnsubscribeAll()
		close(c.Send)
	})
}

// ReadPump reads client frames until the connection dies, then unregisters
// the session.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Websocket read error for %s: %v", c.UserID, err)
			}
			return
		}
		m.HandleClientMessage(c, raw)
	}
}

// WritePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
