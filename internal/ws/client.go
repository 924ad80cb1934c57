package ws

import (
	"encoding/json"
	"time"

	"hardmine/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 64
)

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	Send   chan []byte

	hub  *Hub
	done chan struct{}
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		hub:    hub,
		done:   make(chan struct{}),
	}
}

// Run registers the client, pumps messages and blocks until the connection
// is closed.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()

	if msg, err := encode(MsgReady, nil); err == nil {
		c.enqueue(msg)
	}

	c.readPump()
}

// enqueue drops the message when the client can't keep up
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- msg:
		return true
	default:
		logger.Warn("ws send buffer full, dropping message", "user_id", c.UserID)
		return false
	}
}

//read
func (c *Client) readPump() {
	defer c.close()

	c.Conn.SetReadLimit(1024)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			if msg, err := encode(MsgError, ErrorPayload{Message: "invalid message"}); err == nil {
				c.enqueue(msg)
			}
			continue
		}
		if env.Type == MsgPing {
			if msg, err := encode(MsgPong, nil); err == nil {
				c.enqueue(msg)
			}
		}
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "user_id", c.UserID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

//disconnect
func (c *Client) close() {
	c.hub.Unregister(c)
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	_ = c.Conn.Close()
}
