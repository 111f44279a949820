package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

// Config is the top-level configuration, loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Realtime RealtimeConfig
	Backend  BackendConfig
	JWT      JWTConfig
}

// ServerConfig is the configuration for the gateway HTTP server.
type ServerConfig struct {
	Host string `env:"GW_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"GW_PORT" envDefault:"8081"`
	Mode string `env:"GW_MODE" envDefault:"release"`
}

// LoggerConfig is the configuration for the logger.
type LoggerConfig struct {
	Level    string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode     string `env:"LOGGER_MODE" envDefault:"production"`
	Encoding string `env:"LOGGER_ENCODING" envDefault:"json"`
}

// RedisConfig is the configuration for Redis.
// Note: only standalone mode is supported.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	UseTLS   bool   `env:"REDIS_USE_TLS" envDefault:"false"`

	MaxRetries      int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	MinIdleConns    int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"10"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"100"`
	PoolTimeout     time.Duration `env:"REDIS_POOL_TIMEOUT" envDefault:"4s"`
	ConnMaxIdleTime time.Duration `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// GatewayConfig is the configuration for server-side WebSocket connections.
type GatewayConfig struct {
	PingInterval    time.Duration `env:"GW_PING_INTERVAL" envDefault:"30s"`
	PongWait        time.Duration `env:"GW_PONG_WAIT" envDefault:"60s"`
	WriteWait       time.Duration `env:"GW_WRITE_WAIT" envDefault:"10s"`
	MaxMessageSize  int64         `env:"GW_MAX_MESSAGE_SIZE" envDefault:"4096"`
	ReadBufferSize  int           `env:"GW_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize int           `env:"GW_WRITE_BUFFER_SIZE" envDefault:"1024"`
	MaxConnections  int           `env:"GW_MAX_CONNECTIONS" envDefault:"10000"`
	EventChannel    string        `env:"GW_EVENT_CHANNEL" envDefault:"realtime:events"`
}

// RealtimeConfig is the configuration for the client-side connection manager.
type RealtimeConfig struct {
	URL                  string        `env:"RT_URL" envDefault:"ws://localhost:8081/ws"`
	ReconnectInterval    time.Duration `env:"RT_RECONNECT_INTERVAL" envDefault:"5s"`
	MaxReconnectAttempts int           `env:"RT_MAX_RECONNECT_ATTEMPTS" envDefault:"10"`
	HeartbeatInterval    time.Duration `env:"RT_HEARTBEAT_INTERVAL" envDefault:"30s"`
	Debug                bool          `env:"RT_DEBUG" envDefault:"false"`
}

// BackendConfig is the configuration for the REST backend client.
type BackendConfig struct {
	BaseURL        string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8080"`
	RequestTimeout time.Duration `env:"BACKEND_REQUEST_TIMEOUT" envDefault:"15s"`
	WakeTimeout    time.Duration `env:"BACKEND_WAKE_TIMEOUT" envDefault:"60s"`
	RetryAttempts  int           `env:"BACKEND_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"BACKEND_RETRY_BASE_DELAY" envDefault:"1s"`
	CacheMaxSize   int           `env:"BACKEND_CACHE_MAX_SIZE" envDefault:"100"`
	CacheTTL       time.Duration `env:"BACKEND_CACHE_TTL" envDefault:"1h"`
	CachePath      string        `env:"BACKEND_CACHE_PATH"`
}

// JWTConfig is the configuration for WebSocket authentication.
type JWTConfig struct {
	SecretKey string `env:"JWT_SECRET_KEY"`
	Token     string `env:"JWT_TOKEN"`
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
