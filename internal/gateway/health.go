package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/redis"
)

var startTime = time.Now()

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Redis      *RedisHealth      `json:"redis"`
	WebSocket  *WebSocketInfo    `json:"websocket"`
	Subscriber *SubscriberHealth `json:"subscriber,omitempty"`
	Uptime     int64             `json:"uptime_seconds"`
}

// RedisHealth reports Redis connectivity.
type RedisHealth struct {
	Status string  `json:"status"`
	PingMs float64 `json:"ping_ms,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// WebSocketInfo reports hub connection counts.
type WebSocketInfo struct {
	ActiveConnections int `json:"active_connections"`
}

// SubscriberHealth reports the Redis subscriber's state.
type SubscriberHealth struct {
	Active        bool      `json:"active"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
	Channel       string    `json:"channel"`
}

func healthHandler(c *gin.Context, logger log.Logger, hub *Hub, redisClient *redis.Client, subscriber *Subscriber) {
	ctx := context.Background()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(startTime).Seconds()),
	}

	redisHealth := &RedisHealth{Status: "connected"}
	if pingDuration, err := redisClient.Ping(ctx); err != nil {
		redisHealth.Status = "disconnected"
		redisHealth.Error = err.Error()
		response.Status = "degraded"
		logger.Errorf(ctx, "gateway: redis health check failed: %v", err)
	} else {
		redisHealth.PingMs = float64(pingDuration.Microseconds()) / 1000.0
	}
	response.Redis = redisHealth

	stats := hub.GetStats()
	response.WebSocket = &WebSocketInfo{ActiveConnections: stats.ActiveConnections}

	if subscriber != nil {
		active, lastMessageAt, channel := subscriber.GetHealthInfo()
		response.Subscriber = &SubscriberHealth{
			Active:        active,
			LastMessageAt: lastMessageAt,
			Channel:       channel,
		}
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
