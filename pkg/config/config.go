package config

import "time"

// TokenExpiryPolicy when a session token expiry is checked
type TokenExpiryPolicy string

const (
	// ExpiryCheckOnConnect only verify expiry when the connection is opened
	ExpiryCheckOnConnect TokenExpiryPolicy = "connect"
	// ExpiryEnforce re-check expiry before every inbound event
	ExpiryEnforce TokenExpiryPolicy = "enforce"
)

// DeletePolicy how deleted messages are stored
type DeletePolicy string

const (
	// SoftDelete keep the record, flag it deleted
	SoftDelete DeletePolicy = "soft"
	// HardDelete remove the record
	HardDelete DeletePolicy = "hard"
)

// Chat definition chat_service YAML structure
type Chat struct {
	Port     string         `mapstructure:"port"`
	GRPCPort string         `mapstructure:"grpc_port"`
	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	// users table, read only
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
	JWT        JWTConfig      `mapstructure:"jwt"`
	Session    SessionConfig  `mapstructure:"session"`
	Message    MessageConfig  `mapstructure:"message"`
	RateLimit  RateConfig     `mapstructure:"http_rate_limit"`
}

// Auth definition auth_service YAML structure
type Auth struct {
	Port       string         `mapstructure:"port"`
	SessionTTL time.Duration  `mapstructure:"session_ttl"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	JWT        JWTConfig      `mapstructure:"jwt"`
}

// Attachment definition attachment_service YAML structure
type Attachment struct {
	Port       string         `mapstructure:"port"`
	PresignTTL time.Duration  `mapstructure:"presign_ttl"`
	MaxSize    int64          `mapstructure:"max_size"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	MinIO      MinIOConfig    `mapstructure:"minio"`
	RabbitMQ   RabbitConfig   `mapstructure:"rabbitmq"`
	JWT        JWTConfig      `mapstructure:"jwt"`
}

// SessionConfig websocket session setting
type SessionConfig struct {
	WriteTimeout      time.Duration     `mapstructure:"write_timeout"`
	SendBuffer        int               `mapstructure:"send_buffer"`
	PingInterval      time.Duration     `mapstructure:"ping_interval"`
	TokenExpiryPolicy TokenExpiryPolicy `mapstructure:"token_expiry_policy"`
	RateLimit         RateConfig        `mapstructure:"rate_limit"`
	EventQueue        int               `mapstructure:"event_queue"`
}

// MessageConfig message storage setting
type MessageConfig struct {
	WindowSize   int          `mapstructure:"window_size"`
	DeletePolicy DeletePolicy `mapstructure:"delete_policy"`
	PageSize     int          `mapstructure:"page_size"`
	MaxPageSize  int          `mapstructure:"max_page_size"`
}

// RateConfig token bucket setting
type RateConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

// JWTConfig jwt setting
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
	// Addr direct address, sentinel discovery from .env is used when empty
	Addr string `mapstructure:"addr"`
}

// KafkaConfig kafka setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryCount    int      `mapstructure:"retry_count"`
	RetryInterval int      `mapstructure:"retry_interval"`
}

// MinIOConfig minio setting
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// RabbitConfig rabbitmq setting
type RabbitConfig struct {
	URL           string `mapstructure:"url"`
	Queue         string `mapstructure:"queue"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// ApplyDefaults fill zero values
func (c *Chat) ApplyDefaults() {
	if c.Session.WriteTimeout <= 0 {
		c.Session.WriteTimeout = 10 * time.Second
	}
	if c.Session.SendBuffer <= 0 {
		c.Session.SendBuffer = 64
	}
	if c.Session.PingInterval <= 0 {
		c.Session.PingInterval = 30 * time.Second
	}
	if c.Session.TokenExpiryPolicy == "" {
		c.Session.TokenExpiryPolicy = ExpiryCheckOnConnect
	}
	if c.Session.RateLimit.PerSecond <= 0 {
		c.Session.RateLimit.PerSecond = 20
	}
	if c.Session.RateLimit.Burst <= 0 {
		c.Session.RateLimit.Burst = 40
	}
	if c.Session.EventQueue <= 0 {
		c.Session.EventQueue = 1024
	}
	if c.Message.WindowSize <= 0 {
		c.Message.WindowSize = 50
	}
	if c.Message.DeletePolicy == "" {
		c.Message.DeletePolicy = SoftDelete
	}
	if c.Message.PageSize <= 0 {
		c.Message.PageSize = 50
	}
	if c.Message.MaxPageSize < c.Message.PageSize {
		c.Message.MaxPageSize = 100
		if c.Message.MaxPageSize < c.Message.PageSize {
			c.Message.MaxPageSize = c.Message.PageSize
		}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "chat.events"
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	c.JWT.applyDefaults()
}

// ApplyDefaults fill zero values
func (a *Auth) ApplyDefaults() {
	if a.SessionTTL <= 0 {
		a.SessionTTL = 24 * time.Hour
	}
	a.JWT.applyDefaults()
}

// ApplyDefaults fill zero values
func (a *Attachment) ApplyDefaults() {
	if a.PresignTTL <= 0 {
		a.PresignTTL = time.Hour
	}
	if a.MaxSize <= 0 {
		a.MaxSize = 25 << 20
	}
	if a.RabbitMQ.Queue == "" {
		a.RabbitMQ.Queue = "thumbnail"
	}
	a.JWT.applyDefaults()
}

func (j *JWTConfig) applyDefaults() {
	if j.TTL <= 0 {
		j.TTL = 30 * 24 * time.Hour
	}
	if j.Issuer == "" {
		j.Issuer = "auth_service"
	}
}
