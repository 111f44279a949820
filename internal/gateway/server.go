package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/redis"
)

// Server is the gateway HTTP server.
type Server struct {
	config ServerConfig
	server *http.Server
}

// ServerConfig holds server wiring.
type ServerConfig struct {
	Host        string
	Port        int
	Router      *gin.Engine
	Logger      log.Logger
	Hub         *Hub
	RedisClient *redis.Client
	Subscriber  *Subscriber
}

// NewServer creates a Server and registers the health and metrics routes.
func NewServer(cfg ServerConfig) *Server {
	setupRoutes(cfg)

	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:        cfg.Router,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.config.Logger.Infof(context.Background(), "gateway: HTTP server listening on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.config.Logger.Info(ctx, "gateway: shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(cfg ServerConfig) {
	cfg.Router.GET("/health", func(c *gin.Context) {
		healthHandler(c, cfg.Logger, cfg.Hub, cfg.RedisClient, cfg.Subscriber)
	})
	cfg.Router.GET("/metrics", func(c *gin.Context) {
		metricsHandler(c, cfg.Hub)
	})
}
