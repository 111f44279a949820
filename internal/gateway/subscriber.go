package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharath2004-tech/climate-disaster-sub001/internal/realtime"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/redis"

	redis_client "github.com/redis/go-redis/v9"
)

// Subscriber routes backend-published envelopes from Redis Pub/Sub into the
// hub. The backend publishes one Envelope JSON per message on the event
// channel.
type Subscriber struct {
	client  *redis.Client
	hub     *Hub
	logger  log.Logger
	channel string

	pubsub *redis_client.PubSub

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	maxRetries int
	retryDelay time.Duration

	mu            sync.RWMutex
	lastMessageAt time.Time
	isActive      atomic.Bool
}

// NewSubscriber creates a new Redis subscriber on the given channel.
func NewSubscriber(client *redis.Client, hub *Hub, channel string, logger log.Logger) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &Subscriber{
		client:     client,
		hub:        hub,
		logger:     logger,
		channel:    channel,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		maxRetries: 10,
		retryDelay: 5 * time.Second,
	}
}

// Start subscribes and begins routing messages.
func (s *Subscriber) Start() error {
	s.pubsub = s.client.Subscribe(s.ctx, s.channel)
	s.isActive.Store(true)

	s.logger.Infof(s.ctx, "gateway: redis subscriber started on channel %s", s.channel)

	go s.listen()
	return nil
}

func (s *Subscriber) listen() {
	defer close(s.done)

	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info(context.Background(), "gateway: redis subscriber shutting down")
			return

		case msg, ok := <-ch:
			if !ok {
				s.logger.Error(s.ctx, "gateway: redis pub/sub channel closed, reconnecting")
				if err := s.reconnect(); err != nil {
					s.logger.Errorf(s.ctx, "gateway: failed to reconnect to redis: %v", err)
					return
				}
				ch = s.pubsub.Channel()
				continue
			}
			s.handleMessage(msg.Payload)
		}
	}
}

// handleMessage validates one backend envelope and hands it to the hub.
func (s *Subscriber) handleMessage(payload string) {
	s.mu.Lock()
	s.lastMessageAt = time.Now()
	s.mu.Unlock()

	env, err := realtime.DecodeEnvelope([]byte(payload))
	if err != nil {
		s.logger.Errorf(s.ctx, "gateway: dropping redis message: %v", err)
		return
	}
	if env.Type.Reserved() {
		s.logger.Warnf(s.ctx, "gateway: backend published reserved type %s, dropping", env.Type)
		return
	}
	if env.Timestamp == 0 {
		env.Timestamp = time.Now().UnixMilli()
	}

	s.hub.Broadcast(env)
	s.logger.Debugf(s.ctx, "gateway: routed %s event to hub", env.Type)
}

func (s *Subscriber) reconnect() error {
	for i := 0; i < s.maxRetries; i++ {
		s.logger.Infof(s.ctx, "gateway: reconnecting to redis (attempt %d/%d)", i+1, s.maxRetries)

		if s.pubsub != nil {
			s.pubsub.Close()
		}
		s.pubsub = s.client.Subscribe(s.ctx, s.channel)

		if _, err := s.pubsub.Receive(s.ctx); err == nil {
			s.logger.Info(s.ctx, "gateway: reconnected to redis")
			return nil
		}

		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf("failed to reconnect to redis after %d attempts", s.maxRetries)
}

// GetHealthInfo returns the subscriber's health snapshot.
func (s *Subscriber) GetHealthInfo() (active bool, lastMessageAt time.Time, channel string) {
	s.mu.RLock()
	lastMsg := s.lastMessageAt
	s.mu.RUnlock()
	return s.isActive.Load(), lastMsg, s.channel
}

// Shutdown gracefully shuts down the subscriber.
func (s *Subscriber) Shutdown(ctx context.Context) error {
	s.isActive.Store(false)
	s.cancel()

	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			s.logger.Errorf(context.Background(), "gateway: error closing pub/sub: %v", err)
		}
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
