package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	QueueBackendFile  = "file"
	QueueBackendRedis = "redis"
)

// Config holds all runtime knobs, read from the environment with the POS_
// prefix (POS_HTTP_ADDR, POS_MYSQL_DSN, ...).
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	MySQLDSN  string `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/pos?parseTime=true"`
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`

	BranchID string `envconfig:"BRANCH_ID" default:"main"`

	QueueBackend string `envconfig:"QUEUE_BACKEND" default:"file"`
	QueuePath    string `envconfig:"QUEUE_PATH" default:"data/pending_sales.json"`

	ProbeTarget    string        `envconfig:"PROBE_TARGET" default:"localhost:3306"`
	ProbeInterval  time.Duration `envconfig:"PROBE_INTERVAL" default:"1s"`
	OnlineDebounce time.Duration `envconfig:"ONLINE_DEBOUNCE" default:"2s"`

	SubmitTimeout   time.Duration `envconfig:"SUBMIT_TIMEOUT" default:"30s"`
	SnapshotTTL     time.Duration `envconfig:"SNAPSHOT_TTL" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("pos", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.QueueBackend {
	case QueueBackendFile:
		if c.QueuePath == "" {
			return fmt.Errorf("queue path is required for the file backend")
		}
	case QueueBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown queue backend %q", c.QueueBackend)
	}
	if c.OnlineDebounce < 0 || c.ProbeInterval <= 0 {
		return fmt.Errorf("probe interval must be positive and debounce non-negative")
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("submit timeout must be positive")
	}
	return nil
}
