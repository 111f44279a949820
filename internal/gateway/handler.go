package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sharath2004-tech/climate-disaster-sub001/internal/resilience"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/token"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for now (configure in production).
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Connection attempt limits per subject.
const (
	connRateLimit  = 20
	connRateWindow = time.Minute
)

// Handler handles WebSocket connection requests.
type Handler struct {
	hub       *Hub
	validator *token.Validator
	limiter   *resilience.Limiter
	connCfg   ConnConfig
	logger    log.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, validator *token.Validator, limiter *resilience.Limiter, connCfg ConnConfig, logger log.Logger) *Handler {
	return &Handler{
		hub:       hub,
		validator: validator,
		limiter:   limiter,
		connCfg:   connCfg,
		logger:    logger,
	}
}

// HandleWebSocket upgrades an authenticated request and registers the
// connection with the hub.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	ctx := context.Background()

	tok := c.Query("token")
	if tok == "" {
		h.logger.Warn(ctx, "gateway: connection rejected: missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token parameter"})
		return
	}

	subject, err := h.validator.Subject(tok)
	if err != nil {
		h.logger.Warnf(ctx, "gateway: connection rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	if h.limiter != nil && !h.limiter.Allow("conn:"+subject, connRateLimit, connRateWindow) {
		h.logger.Warnf(ctx, "gateway: connection rate limit exceeded for %s", subject)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf(ctx, "gateway: failed to upgrade connection: %v", err)
		return
	}

	conn := NewConn(h.hub, wsConn, subject, h.connCfg, h.logger)
	h.hub.register <- conn
	conn.Start()

	h.logger.Infof(ctx, "gateway: connection established for %s", subject)
}

// SetupRoutes registers the WebSocket route.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/ws", h.HandleWebSocket)
}
