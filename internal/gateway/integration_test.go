package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sharath2004-tech/climate-disaster-sub001/internal/realtime"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/token"
)

const testSecret = "integration-test-secret"

type testGateway struct {
	srv       *httptest.Server
	hub       *Hub
	validator *token.Validator
}

func newTestGateway(t *testing.T, maxConnections int) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(log.Nop(), maxConnections)
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		hub.Shutdown(ctx)
	})

	validator := token.NewValidator(token.Config{SecretKey: testSecret})
	handler := NewHandler(hub, validator, nil, ConnConfig{
		PongWait:       60 * time.Second,
		PingPeriod:     30 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}, log.Nop())

	router := gin.New()
	handler.SetupRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testGateway{srv: srv, hub: hub, validator: validator}
}

func (g *testGateway) wsURL(t *testing.T, subject string) string {
	t.Helper()
	tok, err := g.validator.Sign(subject, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "ws" + strings.TrimPrefix(g.srv.URL, "http") + "/ws?token=" + tok
}

func (g *testGateway) dial(t *testing.T, subject string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(g.wsURL(t, subject), nil)
	if err != nil {
		t.Fatalf("dial gateway: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) *realtime.Envelope {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read from gateway: %v", err)
	}
	env, err := realtime.DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return env
}

func TestGatewayRejectsBadAuth(t *testing.T) {
	g := newTestGateway(t, 10)

	t.Run("missing token", func(t *testing.T) {
		resp, err := http.Get(g.srv.URL + "/ws")
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, err := http.Get(g.srv.URL + "/ws?token=not-a-jwt")
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		forged, err := token.NewValidator(token.Config{SecretKey: "other-secret"}).Sign("intruder", time.Hour)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		resp, err := http.Get(g.srv.URL + "/ws?token=" + forged)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestGatewayBroadcastToManager(t *testing.T) {
	g := newTestGateway(t, 10)

	m := realtime.NewManager(realtime.Config{
		URL:               g.wsURL(t, "citizen-1"),
		HeartbeatInterval: time.Hour,
	}, nil, nil, log.Nop())

	received := make(chan []byte, 1)
	m.On(realtime.EventAlertNew, func(data []byte) { received <- data })

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("manager connect: %v", err)
	}
	defer m.Disconnect()
	waitForConns(t, g.hub, 1)

	env, err := realtime.NewEnvelope(realtime.EventAlertNew, map[string]string{
		"id":       "a1",
		"severity": "high",
	}, time.Now())
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	g.hub.Broadcast(env)

	select {
	case data := <-received:
		var payload map[string]string
		if err := json.Unmarshal(data, &payload); err != nil || payload["id"] != "a1" {
			t.Errorf("payload = %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manager never received the broadcast")
	}
}

func TestGatewayRelayBetweenClients(t *testing.T) {
	g := newTestGateway(t, 10)

	sender := g.dial(t, "citizen-1")
	receiver := g.dial(t, "citizen-2")
	waitForConns(t, g.hub, 2)

	env, err := realtime.NewEnvelope(realtime.EventUserLocation, map[string]float64{
		"lat": 10.7769,
		"lng": 106.7009,
	}, time.Now())
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	data, _ := env.Encode()
	if err := sender.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("send: %v", err)
	}

	got := readEnvelope(t, receiver)
	if got.Type != realtime.EventUserLocation {
		t.Errorf("relayed type = %s", got.Type)
	}

	sender.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := sender.ReadMessage(); err == nil {
		t.Error("sender received its own event back")
	}
}

func TestGatewayAnswersAppPing(t *testing.T) {
	g := newTestGateway(t, 10)

	ws := g.dial(t, "citizen-1")
	waitForConns(t, g.hub, 1)

	ping := &realtime.Envelope{
		Type:      realtime.EventPing,
		Data:      []byte("{}"),
		Timestamp: time.Now().UnixMilli(),
	}
	data, _ := ping.Encode()
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("send ping: %v", err)
	}

	got := readEnvelope(t, ws)
	if got.Type != realtime.EventPong {
		t.Fatalf("reply type = %s, want pong", got.Type)
	}
}

func TestGatewayDropsGarbageFrames(t *testing.T) {
	g := newTestGateway(t, 10)

	sender := g.dial(t, "citizen-1")
	receiver := g.dial(t, "citizen-2")
	waitForConns(t, g.hub, 2)

	if err := sender.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("send: %v", err)
	}

	receiver.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := receiver.ReadMessage(); err == nil {
		t.Error("garbage frame was relayed")
	}

	// The sender's connection survives.
	env, err := realtime.NewEnvelope(realtime.EventReportNew, map[string]string{"id": "r1"}, time.Now())
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	data, _ := env.Encode()
	if err := sender.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("send after garbage: %v", err)
	}
	if got := readEnvelope(t, receiver); got.Type != realtime.EventReportNew {
		t.Errorf("relayed type = %s", got.Type)
	}
}

func TestGatewayMaxConnections(t *testing.T) {
	g := newTestGateway(t, 1)

	first := g.dial(t, "citizen-1")
	waitForConns(t, g.hub, 1)

	second := g.dial(t, "citizen-2")
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Fatal("second connection survived past the connection cap")
	}

	// The first connection is unaffected.
	first.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := first.ReadMessage(); err != nil && !strings.Contains(err.Error(), "timeout") {
		t.Errorf("first connection dropped: %v", err)
	}
	if got := g.hub.GetStats().ActiveConnections; got != 1 {
		t.Errorf("active connections = %d, want 1", got)
	}
}
