// Package gateway is the server counterpart of the realtime client: it
// accepts authenticated WebSocket connections, fans backend events out to
// every connected client, and relays client-published events.
package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharath2004-tech/climate-disaster-sub001/internal/realtime"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
)

// Hub maintains the set of active connections and broadcasts envelopes to
// them.
type Hub struct {
	conns map[*Conn]struct{}
	mu    sync.RWMutex

	register   chan *Conn
	unregister chan *Conn
	broadcast  chan *broadcastRequest

	totalBroadcast atomic.Int64
	totalSent      atomic.Int64
	totalFailed    atomic.Int64

	maxConnections int
	logger         log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type broadcastRequest struct {
	env *realtime.Envelope
	// except is the originating connection of a relayed envelope; it does
	// not receive its own event back.
	except *Conn
}

// NewHub creates a new Hub.
func NewHub(logger log.Logger, maxConnections int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		conns:          make(map[*Conn]struct{}),
		register:       make(chan *Conn, 100),
		unregister:     make(chan *Conn, 100),
		broadcast:      make(chan *broadcastRequest, 1000),
		maxConnections: maxConnections,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info(context.Background(), "gateway: hub shutting down")
			h.closeAllConnections()
			return

		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case req := <-h.broadcast:
			h.fanOut(req)
		}
	}
}

// Broadcast queues an envelope for delivery to every connected client.
func (h *Hub) Broadcast(env *realtime.Envelope) {
	h.enqueue(&broadcastRequest{env: env})
}

// Relay queues a client-published envelope for delivery to every other
// client.
func (h *Hub) Relay(from *Conn, env *realtime.Envelope) {
	h.enqueue(&broadcastRequest{env: env, except: from})
}

func (h *Hub) enqueue(req *broadcastRequest) {
	select {
	case h.broadcast <- req:
	case <-time.After(time.Second):
		h.logger.Warnf(context.Background(), "gateway: broadcast queue full, dropping %s", req.env.Type)
		h.totalFailed.Add(1)
	}
}

func (h *Hub) registerConnection(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.conns) >= h.maxConnections {
		h.logger.Warnf(context.Background(), "gateway: max connections reached, rejecting %s", conn.subject)
		go conn.Close()
		return
	}
	h.conns[conn] = struct{}{}
	h.logger.Infof(context.Background(), "gateway: client connected: %s (total: %d)", conn.subject, len(h.conns))
}

func (h *Hub) unregisterConnection(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	close(conn.send)
	h.logger.Infof(context.Background(), "gateway: client disconnected: %s (total: %d)", conn.subject, len(h.conns))
}

func (h *Hub) fanOut(req *broadcastRequest) {
	data, err := req.env.Encode()
	if err != nil {
		h.logger.Errorf(context.Background(), "gateway: failed to marshal envelope: %v", err)
		h.totalFailed.Add(1)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.totalBroadcast.Add(1)
	for conn := range h.conns {
		if conn == req.except {
			continue
		}
		select {
		case conn.send <- data:
			h.totalSent.Add(1)
		default:
			// Send buffer full, skip this client.
			h.logger.Warnf(context.Background(), "gateway: send buffer full for %s", conn.subject)
			h.totalFailed.Add(1)
		}
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.Close()
	}
	h.conns = make(map[*Conn]struct{})
}

// Stats is a snapshot of hub counters.
type Stats struct {
	ActiveConnections int   `json:"active_connections"`
	EventsBroadcast   int64 `json:"events_broadcast"`
	MessagesSent      int64 `json:"messages_sent"`
	MessagesFailed    int64 `json:"messages_failed"`
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Stats{
		ActiveConnections: len(h.conns),
		EventsBroadcast:   h.totalBroadcast.Load(),
		MessagesSent:      h.totalSent.Load(),
		MessagesFailed:    h.totalFailed.Load(),
	}
}

// Shutdown gracefully shuts down the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
