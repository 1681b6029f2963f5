package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/choreboard/choreboard/internal/service/auth"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// writeWait is the deadline for a single frame write.
	writeWait = 10 * time.Second

	// maxMessageSize bounds inbound frames; client events are tiny.
	maxMessageSize = 4096
)

// Client is one authenticated duplex session belonging to a user. It is
// created by the gateway after a successful handshake and owned by the
// connection registry until disconnect.
type Client struct {
	userID string
	claims *auth.Claims

	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	gateway *Gateway
	limiter *rate.Limiter

	closeOnce sync.Once
}

// trySend queues a frame for delivery without blocking. Returns false when
// the send buffer is full; the frame is dropped, never queued elsewhere.
func (c *Client) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// sendEvent marshals and queues a server event for this client only.
func (c *Client) sendEvent(event EventType, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		c.gateway.logger.Error("failed to encode frame",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
		return
	}
	c.trySend(frame)
}

// readPump reads inbound frames and routes them through the gateway.
// It runs in its own goroutine; exiting triggers the disconnect path.
// Events from one connection are processed in arrival order.
func (c *Client) readPump() {
	defer c.gateway.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.gateway.cfg.PongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.gateway.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gateway.logger.Debug("unexpected close",
					slog.String("user_id", c.userID),
					slog.String("error", err.Error()))
			}
			return
		}

		// Flood protection: over-limit frames are answered and dropped,
		// the connection stays open.
		if !c.limiter.Allow() {
			c.sendEvent(EventError, ErrorPayload{Message: "rate limit exceeded"})
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendEvent(EventError, ErrorPayload{Message: "malformed message"})
			continue
		}

		c.gateway.handleMessage(c, msg)
	}
}

// writePump writes queued frames and keepalive pings to the connection.
// It runs in its own goroutine and exits when the client disconnects.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.gateway.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
