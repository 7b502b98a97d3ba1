// Package config defines environment- and file-based configuration for a
// queue process, following the teacher's caarlos0/env struct-tag
// convention.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config holds process-wide configuration parsed from the environment.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev" yaml:"app_env"`

	QueueName    string        `env:"QUEUE_NAME" envDefault:"default" yaml:"queue_name"`
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379" yaml:"redis_addr"`
	Timeout      time.Duration `env:"QUEUE_TIMEOUT" envDefault:"5s" yaml:"timeout"`
	TTLStateInfo time.Duration `env:"QUEUE_TTL_STATE_INFO" envDefault:"24h" yaml:"ttl_state_info"`
	LockTime     time.Duration `env:"QUEUE_LOCK_TIME" envDefault:"30s" yaml:"lock_time"`
	DiscardTime  time.Duration `env:"QUEUE_DISCARD_TIME" envDefault:"1h" yaml:"discard_time"`

	ReaperInterval time.Duration `env:"QUEUE_REAPER_INTERVAL" envDefault:"5s" yaml:"reaper_interval"`

	MetricsAddr  string `env:"METRICS_ADDR" envDefault:":9090" yaml:"metrics_addr"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"" yaml:"otlp_endpoint"`
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// LoadFile loads a YAML queue-topology file and overlays it on top of the
// environment-derived defaults, for operators who prefer a config file to
// environment variables for queue tuning.
func LoadFile(path string) (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("op=config.LoadFile: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.LoadFile: parse %s: %w", path, err)
	}
	return cfg, nil
}
