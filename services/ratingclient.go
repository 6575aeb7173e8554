package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Control messages only
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

// RatingClient is one websocket viewer of the live ratings feed. movies is
// guarded by the hub mutex.
type RatingClient struct {
	hub        *RatingHub
	conn       *websocket.Conn
	send       chan []byte
	movies     map[uint]struct{}
	remoteAddr string
}

// NewRatingClient creates a client for an upgraded connection
func NewRatingClient(hub *RatingHub, conn *websocket.Conn, remoteAddr string) *RatingClient {
	return &RatingClient{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		movies:     make(map[uint]struct{}),
		remoteAddr: remoteAddr,
	}
}

// ReadPump handles client control messages until the connection fails
func (c *RatingClient) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("remote", c.remoteAddr).Msg("websocket error")
			}
			return
		}

		var msg LiveMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("invalid message")
			continue
		}

		switch msg.Type {
		case "subscribe":
			if err := c.hub.Subscribe(c, msg.MovieID); err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) && !errors.Is(err, errTooManySubscriptions) {
					c.hub.log.Warn().Err(err).Uint("movie_id", msg.MovieID).Msg("subscribe failed")
				}
				c.sendError(err.Error())
			}
		case "unsubscribe":
			c.hub.Unsubscribe(c, msg.MovieID)
		case "ping":
			c.queue(LiveMessage{Type: "pong"})
		default:
			c.sendError("unknown message type: " + msg.Type)
		}
	}
}

// WritePump writes queued messages and keepalive pings to the connection
func (c *RatingClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *RatingClient) sendError(errMsg string) {
	c.queue(LiveMessage{Type: "error", Error: errMsg})
}

// queue must not race with Unregister closing send, hence the hub lock
func (c *RatingClient) queue(msg LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
