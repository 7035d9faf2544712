package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JWTCfg struct {
	Secret string `mapstructure:"secret"`
}

type LimitsCfg struct {
	// MaxMessageLen caps message content length in runes after trimming.
	MaxMessageLen int `mapstructure:"max_message_len"`
	// WSEventsPerSec is the per-connection inbound event budget.
	WSEventsPerSec int `mapstructure:"ws_events_per_sec"`
	// APIRequestsPerMin is the per-user REST budget enforced via redis.
	APIRequestsPerMin int `mapstructure:"api_requests_per_min"`
}

type Config struct {
	App    AppCfg    `mapstructure:"app"`
	Mongo  MongoCfg  `mapstructure:"mongodb"`
	Redis  RedisCfg  `mapstructure:"redis"`
	Kafka  KafkaCfg  `mapstructure:"kafka"`
	JWT    JWTCfg    `mapstructure:"jwt"`
	Limits LimitsCfg `mapstructure:"limits"`

	// Derived.
	RequestTimeout time.Duration
}

// Load reads config.yaml (if present) and lets ILIKE_* environment variables
// override any key, e.g. ILIKE_MONGODB_URI.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ILIKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", 8080)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "ilike")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "ilike")
	v.SetDefault("kafka.topic", "chat.events")
	v.SetDefault("limits.max_message_len", 1000)
	v.SetDefault("limits.ws_events_per_sec", 20)
	v.SetDefault("limits.api_requests_per_min", 120)

	if err := v.ReadInConfig(); err != nil {
		// config file is optional; env + defaults must be enough
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.RequestTimeout = 10 * time.Second
	return &cfg, nil
}

func (c *Config) Development() bool { return c.App.Env != "production" }
