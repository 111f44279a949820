package gateway

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sharath2004-tech/climate-disaster-sub001/internal/realtime"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
)

// ConnConfig holds per-connection timing configuration.
type ConnConfig struct {
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Conn represents one client WebSocket connection.
type Conn struct {
	hub     *Hub
	conn    *websocket.Conn
	subject string

	// Buffered channel of outbound messages.
	send chan []byte

	cfg    ConnConfig
	logger log.Logger
	done   chan struct{}
}

// NewConn creates a Conn for an upgraded WebSocket connection.
func NewConn(hub *Hub, conn *websocket.Conn, subject string, cfg ConnConfig, logger log.Logger) *Conn {
	return &Conn{
		hub:     hub,
		conn:    conn,
		subject: subject,
		send:    make(chan []byte, 256),
		cfg:     cfg,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start starts the connection's read and write pumps.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Conn) Close() {
	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.Close()
	}
}

// readPump pumps inbound envelopes from the client. There is at most one
// reader per connection.
func (c *Conn) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Errorf(context.Background(), "gateway: read error for %s: %v", c.subject, err)
			}
			break
		}
		c.handleInbound(data)
	}
}

// handleInbound processes one client envelope: heartbeat pings get a pong
// reply, other valid application events are relayed to the remaining
// clients, and anything malformed is logged and dropped.
func (c *Conn) handleInbound(data []byte) {
	ctx := context.Background()

	env, err := realtime.DecodeEnvelope(data)
	if err != nil {
		c.logger.Warnf(ctx, "gateway: dropping message from %s: %v", c.subject, err)
		return
	}

	switch {
	case env.Type == realtime.EventPing:
		pong := &realtime.Envelope{
			Type:      realtime.EventPong,
			Data:      []byte("{}"),
			Timestamp: time.Now().UnixMilli(),
		}
		reply, err := pong.Encode()
		if err != nil {
			return
		}
		select {
		case c.send <- reply:
		default:
			c.logger.Warnf(ctx, "gateway: pong dropped for %s (buffer full)", c.subject)
		}

	case env.Type.Reserved():
		// A client has no business sending pong; ignore.

	default:
		c.hub.Relay(c, env)
		c.logger.Debugf(ctx, "gateway: relayed %s from %s", env.Type, c.subject)
	}
}

// writePump pumps outbound messages to the client. There is at most one
// writer per connection.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			// Transport-level keep-alive, independent of the app-level
			// ping/pong envelopes.
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
