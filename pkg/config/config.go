package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port     string         `mapstructure:"port"`
	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// Fanout definition fanout_worker YAML structure
type Fanout struct {
	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Push     PushConfig     `mapstructure:"push"`
}

// SyncConfig live tail / history pager sizes
type SyncConfig struct {
	WindowSize  int64         `mapstructure:"window_size"`
	PageSize    int64         `mapstructure:"page_size"`
	PresenceTTL time.Duration `mapstructure:"presence_ttl"`
}

// RedisConfig definition redis setting.
// Addr is used for a standalone node; when empty the sentinel settings from .env apply.
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// KafkaConfig definition kafka topic setting
type KafkaConfig struct {
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	GroupID       string        `mapstructure:"group_id"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// RabbitMQConfig push queue. Empty Host means pushes are sent inline.
type RabbitMQConfig struct {
	Host          string        `mapstructure:"host"`
	Port          string        `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Queue         string        `mapstructure:"queue"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// PushConfig push gateway setting
type PushConfig struct {
	Endpoint      string  `mapstructure:"endpoint"`
	AccessToken   string  `mapstructure:"access_token"`
	DeepLinkBase  string  `mapstructure:"deep_link_base"`
	BodyLimit     int     `mapstructure:"body_limit"`
	TimeoutSec    int     `mapstructure:"timeout_sec"`
	MaxFailures   uint32  `mapstructure:"max_failures"`
	OpenSec       int     `mapstructure:"open_sec"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
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
