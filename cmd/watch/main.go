// Command watch is a terminal alert watcher: it fetches the currently
// active alerts through the resilience-wrapped backend client, then follows
// live events over the realtime channel until interrupted.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/sharath2004-tech/climate-disaster-sub001/config"
	"github.com/sharath2004-tech/climate-disaster-sub001/internal/apiclient"
	"github.com/sharath2004-tech/climate-disaster-sub001/internal/cache"
	"github.com/sharath2004-tech/climate-disaster-sub001/internal/realtime"
	"github.com/sharath2004-tech/climate-disaster-sub001/internal/resilience"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config:", err)
		return
	}

	logger := log.Init(log.Config{
		Level:    cfg.Logger.Level,
		Mode:     log.ModeDevelopment,
		Encoding: log.EncodingConsole,
	})

	ctx := context.Background()
	clock := clockwork.NewRealClock()

	var store cache.Store
	if cfg.Backend.CachePath != "" {
		store = cache.NewFileStore(cfg.Backend.CachePath)
	}
	respCache := cache.New(cache.Config{
		MaxSize: cfg.Backend.CacheMaxSize,
		TTL:     cfg.Backend.CacheTTL,
	}, clock, store, logger)
	limiter := resilience.NewLimiter(clock)

	backend := apiclient.New(apiclient.Config{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
		WakeTimeout:    cfg.Backend.WakeTimeout,
		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Backend.RetryAttempts,
			BaseDelay:   cfg.Backend.RetryBaseDelay,
		},
	}, clock, logger, respCache, limiter)

	alerts, err := backend.ActiveAlerts(ctx)
	if err != nil {
		logger.Warnf(ctx, "watch: could not fetch active alerts: %v", err)
	} else {
		fmt.Printf("%d active alert(s)\n", len(alerts))
		for _, a := range alerts {
			fmt.Printf("  [%s] %s — %s (%s)\n", a.Severity, a.Title, a.Area, a.HazardType)
		}
	}

	manager := realtime.NewManager(realtime.Config{
		URL:                  endpointURL(cfg),
		ReconnectInterval:    cfg.Realtime.ReconnectInterval,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		HeartbeatInterval:    cfg.Realtime.HeartbeatInterval,
		Debug:                cfg.Realtime.Debug,
	}, nil, clock, logger)

	for _, eventType := range realtime.EventTypes {
		eventType := eventType
		manager.On(eventType, func(data []byte) {
			printEvent(eventType, data)
		})
	}

	if err := manager.Connect(ctx); err != nil {
		logger.Errorf(ctx, "watch: connect failed: %v", err)
		return
	}
	fmt.Println("Watching for live events. Ctrl-C to stop.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	manager.Disconnect()
}

// endpointURL appends the auth token to the configured gateway URL.
func endpointURL(cfg *config.Config) string {
	if cfg.JWT.Token == "" {
		return cfg.Realtime.URL
	}
	u, err := url.Parse(cfg.Realtime.URL)
	if err != nil {
		return cfg.Realtime.URL
	}
	q := u.Query()
	q.Set("token", cfg.JWT.Token)
	u.RawQuery = q.Encode()
	return u.String()
}

func printEvent(eventType realtime.EventType, data []byte) {
	var pretty map[string]any
	if err := json.Unmarshal(data, &pretty); err != nil {
		fmt.Printf("%s: %s\n", eventType, string(data))
		return
	}
	fmt.Printf("%s: %v\n", eventType, pretty)
}
