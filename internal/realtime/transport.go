package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a single established bidirectional channel. Implementations
// must allow ReadMessage to run concurrently with WriteMessage/Close.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close(code int, reason string) error
}

// Dialer opens Transports. Injected so tests can drive the transport
// directly instead of standing up a real server.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Transport, error)
}

const closeWriteWait = 5 * time.Second

// NewDialer returns a Dialer backed by gorilla/websocket.
func NewDialer(header http.Header) Dialer {
	return &gorillaDialer{dialer: websocket.DefaultDialer, header: header}
}

type gorillaDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

func (d *gorillaDialer) DialContext(ctx context.Context, url string) (Transport, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, d.header)
	if err != nil {
		return nil, err
	}
	return &gorillaTransport{conn: conn}, nil
}

// gorillaTransport serializes writes: gorilla supports at most one
// concurrent writer per connection.
type gorillaTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (t *gorillaTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *gorillaTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *gorillaTransport) Close(code int, reason string) error {
	t.mu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
	t.mu.Unlock()
	return t.conn.Close()
}

// isCleanClose reports whether err signals a server-initiated clean close.
// Any other close code or an abrupt failure is treated as abnormal.
func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure)
}
