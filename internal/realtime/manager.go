package realtime

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
)

// Handler receives the data payload of a dispatched envelope.
type Handler func(data []byte)

// Config holds connection manager configuration.
type Config struct {
	// URL is the gateway endpoint address.
	URL string

	// ReconnectInterval is the base backoff before reconnect attempt n;
	// the actual delay is min(ReconnectInterval * 2^(n-1), 30s).
	ReconnectInterval time.Duration

	// MaxReconnectAttempts bounds consecutive failed reconnects before
	// the manager gives up and stays CLOSED.
	MaxReconnectAttempts int

	// HeartbeatInterval is the period between ping envelopes while OPEN.
	HeartbeatInterval time.Duration

	// Debug enables verbose logging.
	Debug bool
}

const (
	defaultReconnectInterval    = 5 * time.Second
	defaultMaxReconnectAttempts = 10
	defaultHeartbeatInterval    = 30 * time.Second

	// maxReconnectDelay caps exponential backoff so recovery latency
	// stays bounded after long outages.
	maxReconnectDelay = 30 * time.Second
)

// Manager owns one logical realtime channel to the gateway, transparently
// surviving network interruption, and fans typed events out to registered
// handlers. One Manager per application session; construct it once and pass
// it by reference.
type Manager struct {
	cfg    Config
	dialer Dialer
	clock  clockwork.Clock
	logger log.Logger

	mu            sync.Mutex
	state         State
	tr            Transport
	gen           int
	attempts      int
	explicitClose bool
	hbStop        chan struct{}

	hmu      sync.RWMutex
	handlers map[EventType]map[uintptr]Handler
}

// NewManager creates a connection manager. A nil dialer dials with
// gorilla/websocket; a nil clock uses the wall clock; a nil logger discards.
func NewManager(cfg Config, dialer Dialer, clock clockwork.Clock, logger log.Logger) *Manager {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if dialer == nil {
		dialer = NewDialer(nil)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		cfg:      cfg,
		dialer:   dialer,
		clock:    clock,
		logger:   logger,
		state:    StateClosed,
		handlers: make(map[EventType]map[uintptr]Handler),
	}
}

// Connect opens the channel. It is idempotent: if the channel is already
// open it returns immediately, and if an attempt is already in flight it
// fails fast with ErrConnectInProgress rather than queuing a second one.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateOpen:
		m.mu.Unlock()
		return nil
	case StateConnecting, StateClosing:
		m.mu.Unlock()
		return ErrConnectInProgress
	}
	m.state = StateConnecting
	m.mu.Unlock()

	tr, err := m.dialer.DialContext(ctx, m.cfg.URL)

	m.mu.Lock()
	if m.state != StateConnecting {
		// Disconnect raced the dial.
		m.mu.Unlock()
		if tr != nil {
			_ = tr.Close(websocket.CloseNormalClosure, "superseded")
		}
		return ErrClosed
	}
	if err != nil {
		m.state = StateClosed
		m.mu.Unlock()
		return fmt.Errorf("realtime: connect %s: %w", m.cfg.URL, err)
	}
	m.startLocked(tr)
	m.mu.Unlock()

	m.logger.Infof(ctx, "realtime: connected to %s", m.cfg.URL)
	return nil
}

// Disconnect closes the channel with the normal-closure code and suppresses
// auto-reconnect. The explicit-close flag is cleared afterward so a later
// Connect behaves normally.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.explicitClose = true
	m.state = StateClosing
	m.stopHeartbeatLocked()
	tr := m.tr
	m.tr = nil
	m.gen++ // invalidates the read loop and any pending redial
	m.mu.Unlock()

	if tr != nil {
		if err := tr.Close(websocket.CloseNormalClosure, "Client disconnecting"); err != nil {
			m.logger.Debugf(context.Background(), "realtime: close: %v", err)
		}
	}

	m.mu.Lock()
	m.state = StateClosed
	m.explicitClose = false
	m.attempts = 0
	m.mu.Unlock()

	m.logger.Info(context.Background(), "realtime: disconnected")
}

// Send serializes {type, data, timestamp} and writes it to the channel.
// It fails with ErrNotConnected when the channel is not open; the caller,
// not the manager, decides whether to retry.
func (m *Manager) Send(t EventType, payload any) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}

	m.mu.Lock()
	tr, st := m.tr, m.state
	m.mu.Unlock()
	if st != StateOpen || tr == nil {
		return ErrNotConnected
	}

	env, err := NewEnvelope(t, payload, m.clock.Now())
	if err != nil {
		return fmt.Errorf("realtime: encode %s: %w", t, err)
	}
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("realtime: encode %s: %w", t, err)
	}
	if err := tr.WriteMessage(data); err != nil {
		return fmt.Errorf("realtime: send %s: %w", t, err)
	}
	return nil
}

// On registers a handler for an event type and returns a closure that
// removes exactly that handler. A handler registered twice is stored once.
func (m *Manager) On(t EventType, h Handler) func() {
	if h == nil || !t.Valid() || t.Reserved() {
		m.logger.Warnf(context.Background(), "realtime: ignoring subscription for %q", t)
		return func() {}
	}
	key := handlerKey(h)
	m.hmu.Lock()
	set, ok := m.handlers[t]
	if !ok {
		set = make(map[uintptr]Handler)
		m.handlers[t] = set
	}
	set[key] = h
	m.hmu.Unlock()
	return func() { m.Off(t, h) }
}

// Off removes a handler previously registered with On. The type key itself
// is deleted once its last handler is removed.
func (m *Manager) Off(t EventType, h Handler) {
	if h == nil {
		return
	}
	key := handlerKey(h)
	m.hmu.Lock()
	if set, ok := m.handlers[t]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(m.handlers, t)
		}
	}
	m.hmu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the channel is open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateOpen
}

// startLocked installs an established transport and starts the pumps.
// Caller must hold m.mu.
func (m *Manager) startLocked(tr Transport) {
	m.gen++
	gen := m.gen
	m.tr = tr
	m.state = StateOpen
	m.attempts = 0
	m.explicitClose = false
	stop := make(chan struct{})
	m.hbStop = stop
	go m.readLoop(tr, gen)
	go m.heartbeat(tr, stop)
}

// readLoop pumps inbound messages until the transport fails.
func (m *Manager) readLoop(tr Transport, gen int) {
	for {
		data, err := tr.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		m.dispatch(data)
	}
}

// handleClose reacts to the transport dropping. A clean close leaves the
// manager CLOSED; an unclean one schedules a reconnect.
func (m *Manager) handleClose(gen int, cause error) {
	ctx := context.Background()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.stopHeartbeatLocked()
	m.tr = nil

	if m.explicitClose || isCleanClose(cause) {
		m.state = StateClosed
		m.mu.Unlock()
		m.logger.Infof(ctx, "realtime: connection closed: %v", cause)
		return
	}
	m.scheduleReconnectLocked(cause)
	m.mu.Unlock()
}

// scheduleReconnectLocked increments the attempt counter and schedules the
// next redial after the backoff delay, or gives up once the budget is
// exhausted. Caller must hold m.mu.
func (m *Manager) scheduleReconnectLocked(cause error) {
	ctx := context.Background()

	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.state = StateClosed
		m.logger.Errorf(ctx, "realtime: giving up after %d reconnect attempts: %v", m.attempts, cause)
		return
	}
	m.attempts++
	m.gen++
	gen := m.gen
	n := m.attempts
	m.state = StateConnecting

	delay := backoffDelay(m.cfg.ReconnectInterval, n)
	m.logger.Warnf(ctx, "realtime: connection lost, reconnecting in %s (attempt %d/%d): %v",
		delay, n, m.cfg.MaxReconnectAttempts, cause)

	go func() {
		<-m.clock.After(delay)
		m.redial(gen)
	}()
}

// redial performs one scheduled reconnect attempt.
func (m *Manager) redial(gen int) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	tr, err := m.dialer.DialContext(context.Background(), m.cfg.URL)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		if tr != nil {
			go tr.Close(websocket.CloseNormalClosure, "superseded")
		}
		return
	}
	if err != nil {
		m.scheduleReconnectLocked(err)
		return
	}
	m.startLocked(tr)
	m.logger.Infof(context.Background(), "realtime: reconnected to %s", m.cfg.URL)
}

// heartbeat sends a ping envelope on a fixed interval while the channel is
// open. The stop channel is closed whenever the channel leaves OPEN.
func (m *Manager) heartbeat(tr Transport, stop chan struct{}) {
	ticker := m.clock.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			env := &Envelope{
				Type:      EventPing,
				Data:      []byte("{}"),
				Timestamp: m.clock.Now().UnixMilli(),
			}
			data, err := env.Encode()
			if err != nil {
				continue
			}
			if err := tr.WriteMessage(data); err != nil {
				m.logger.Debugf(context.Background(), "realtime: heartbeat write failed: %v", err)
				return
			}
			if m.cfg.Debug {
				m.logger.Debug(context.Background(), "realtime: ping sent")
			}
		}
	}
}

// dispatch parses an inbound payload and fans it out to the handlers
// registered for its type. Malformed or unknown payloads are logged and
// dropped; the connection stays open.
func (m *Manager) dispatch(data []byte) {
	ctx := context.Background()

	env, err := DecodeEnvelope(data)
	if err != nil {
		m.logger.Warnf(ctx, "realtime: dropping inbound message: %v", err)
		return
	}
	if env.Type == EventPong {
		if m.cfg.Debug {
			m.logger.Debug(ctx, "realtime: pong received")
		}
		return
	}

	// Snapshot so removals during this dispatch do not affect it.
	m.hmu.RLock()
	hs := make([]Handler, 0, len(m.handlers[env.Type]))
	for _, h := range m.handlers[env.Type] {
		hs = append(hs, h)
	}
	m.hmu.RUnlock()

	for _, h := range hs {
		m.deliver(h, env)
	}
}

// deliver invokes one handler, containing panics so a failing handler never
// prevents delivery to its siblings.
func (m *Manager) deliver(h Handler, env *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf(context.Background(), "realtime: handler panic for %s: %v", env.Type, r)
		}
	}()
	h(env.Data)
}

// stopHeartbeatLocked stops the heartbeat pump. Caller must hold m.mu.
func (m *Manager) stopHeartbeatLocked() {
	if m.hbStop != nil {
		close(m.hbStop)
		m.hbStop = nil
	}
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt > 16 {
		return maxReconnectDelay
	}
	d := base << (attempt - 1)
	if d <= 0 || d > maxReconnectDelay {
		return maxReconnectDelay
	}
	return d
}

func handlerKey(h Handler) uintptr {
	return reflect.ValueOf(h).Pointer()
}
