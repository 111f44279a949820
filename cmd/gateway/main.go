package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/sharath2004-tech/climate-disaster-sub001/config"
	"github.com/sharath2004-tech/climate-disaster-sub001/internal/gateway"
	"github.com/sharath2004-tech/climate-disaster-sub001/internal/resilience"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/redis"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config:", err)
		return
	}

	logger := log.Init(log.Config{
		Level:    cfg.Logger.Level,
		Mode:     cfg.Logger.Mode,
		Encoding: cfg.Logger.Encoding,
	})

	ctx := context.Background()
	logger.Info(ctx, "Starting realtime gateway...")

	redisClient, err := redis.NewClient(redis.Config{
		Host:            cfg.Redis.Host,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		UseTLS:          cfg.Redis.UseTLS,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		PoolSize:        cfg.Redis.PoolSize,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		ConnMaxIdleTime: cfg.Redis.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Redis.ConnMaxLifetime,
	})
	if err != nil {
		logger.Errorf(ctx, "Failed to connect to Redis: %v", err)
		return
	}
	defer redisClient.Close()
	logger.Infof(ctx, "Redis connected to %s", cfg.Redis.Host)

	validator := token.NewValidator(token.Config{SecretKey: cfg.JWT.SecretKey})

	hub := gateway.NewHub(logger, cfg.Gateway.MaxConnections)
	go hub.Run()
	logger.Info(ctx, "Hub started")

	subscriber := gateway.NewSubscriber(redisClient, hub, cfg.Gateway.EventChannel, logger)
	if err := subscriber.Start(); err != nil {
		logger.Errorf(ctx, "Failed to start Redis subscriber: %v", err)
		return
	}

	limiter := resilience.NewLimiter(clockwork.NewRealClock())
	handler := gateway.NewHandler(hub, validator, limiter, gateway.ConnConfig{
		PongWait:       cfg.Gateway.PongWait,
		PingPeriod:     cfg.Gateway.PingInterval,
		WriteWait:      cfg.Gateway.WriteWait,
		MaxMessageSize: cfg.Gateway.MaxMessageSize,
	}, logger)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	handler.SetupRoutes(router)

	srv := gateway.NewServer(gateway.ServerConfig{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Router:      router,
		Logger:      logger,
		Hub:         hub,
		RedisClient: redisClient,
		Subscriber:  subscriber,
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Errorf(ctx, "Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := subscriber.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down Redis subscriber: %v", err)
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down hub: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down server: %v", err)
	}

	logger.Info(ctx, "Gateway shutdown complete")
}
