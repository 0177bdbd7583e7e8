package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one websocket connection. It is bound to at most one session at
// a time.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string

	mu      sync.RWMutex
	session string
	closed  bool
}

func newClient(hub *Hub, conn *websocket.Conn, remote string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		remote: remote,
	}
}

func (c *Client) sessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	c.session = id
	c.mu.Unlock()
}

// queue hands payload to the write pump. It reports false when the client
// is closed or its queue is full.
func (c *Client) queue(payload []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) pongWait() time.Duration {
	return c.hub.cfg.PingInterval * 10 / 9
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	if c.hub.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	}
	if c.hub.cfg.PingInterval > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
		c.conn.SetPongHandler(func(string) error {
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
			return nil
		})
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", zap.String("remote", c.remote), zap.Error(err))
			}
			return
		}

		msg, err := decodeMessage(data)
		if err != nil {
			c.reply(errorMessage("", err))
			continue
		}

		c.hub.logger.Debug("message received",
			zap.String("type", msg.Type),
			zap.String("remote", c.remote),
		)
		if reply := c.hub.handle(context.Background(), c, msg); reply != nil {
			c.reply(*reply)
		}
	}
}

// reply queues a message for this client only.
func (c *Client) reply(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to encode reply", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	if !c.queue(payload) {
		c.hub.logger.Warn("dropping reply",
			zap.String("remote", c.remote),
			zap.String("type", msg.Type),
		)
	}
}

func (c *Client) writePump() {
	var tick <-chan time.Time
	if c.hub.cfg.PingInterval > 0 {
		ticker := time.NewTicker(c.hub.cfg.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case payload, ok := <-c.send:
			c.setWriteDeadline()
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-tick:
			c.setWriteDeadline()
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) setWriteDeadline() {
	if c.hub.cfg.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
	}
}
