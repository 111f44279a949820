package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsResponse is the metrics endpoint response body.
type MetricsResponse struct {
	Service     string             `json:"service"`
	Timestamp   time.Time          `json:"timestamp"`
	Uptime      int64              `json:"uptime_seconds"`
	Connections *ConnectionMetrics `json:"connections"`
	Messages    *MessageMetrics    `json:"messages"`
}

// ConnectionMetrics reports connection counts.
type ConnectionMetrics struct {
	Active int `json:"active"`
}

// MessageMetrics reports message counters.
type MessageMetrics struct {
	EventsBroadcast int64 `json:"events_broadcast"`
	SentToClients   int64 `json:"sent_to_clients"`
	Failed          int64 `json:"failed"`
}

func metricsHandler(c *gin.Context, hub *Hub) {
	stats := hub.GetStats()

	c.JSON(http.StatusOK, MetricsResponse{
		Service:   "realtime-gateway",
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(startTime).Seconds()),
		Connections: &ConnectionMetrics{
			Active: stats.ActiveConnections,
		},
		Messages: &MessageMetrics{
			EventsBroadcast: stats.EventsBroadcast,
			SentToClients:   stats.MessagesSent,
			Failed:          stats.MessagesFailed,
		},
	})
}
