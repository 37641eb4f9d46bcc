package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	MessagesPerSecond    int   `mapstructure:"messages_per_second"`
}

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	JWT   JWTConfig   `mapstructure:"jwt"`
	Mongo MongoConfig `mapstructure:"mongo"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	WS    WSConfig    `mapstructure:"ws"`

	// derived timeouts
	PingInterval  time.Duration
	WriteDeadline time.Duration
}

func (c *AppConfig) Development() bool {
	return c.Env != "production"
}

// envKeys is every settable config key. Viper only surfaces env-backed
// values into Unmarshal for keys it knows about, so each one is bound
// explicitly (FLEET_JWT_SECRET -> jwt.secret and so on).
var envKeys = []string{
	"app.env", "app.port", "app.metrics_port",
	"jwt.secret",
	"mongo.uri", "mongo.database",
	"redis.addr", "redis.password", "redis.db", "redis.prefix",
	"kafka.brokers", "kafka.topic", "kafka.group_id",
	"ws.ping_interval_seconds", "ws.write_deadline_seconds",
	"ws.max_message_size_bytes", "ws.messages_per_second",
}

// Load reads the config file at path (optional) with FLEET_-prefixed env
// overrides, then applies defaults and derives durations.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if c.App.Port == 0 {
		c.App.Port = 8000
	}
	if c.App.MetricsPort == 0 {
		c.App.MetricsPort = 9100
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "fleetflow"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "fleet"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "fleet.events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "fleet-realtime"
	}
	if c.WS.PingIntervalSeconds == 0 {
		c.WS.PingIntervalSeconds = 25
	}
	if c.WS.WriteDeadlineSeconds == 0 {
		c.WS.WriteDeadlineSeconds = 10
	}
	if c.WS.MaxMessageSizeBytes == 0 {
		c.WS.MaxMessageSizeBytes = 64 * 1024
	}
	if c.WS.MessagesPerSecond == 0 {
		c.WS.MessagesPerSecond = 10
	}
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	return &c, nil
}
