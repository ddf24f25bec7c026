package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FLOWBOARD_BACKEND_TOKEN.
const EnvPrefix = "FLOWBOARD"

// Config is the host configuration shared by flowctl and flowserver.
type Config struct {
	Backend     BackendConfig  `mapstructure:"backend"`
	Refresh     RefreshConfig  `mapstructure:"refresh"`
	Server      ServerConfig   `mapstructure:"server"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	NATS        NATSConfig     `mapstructure:"nats"`
	Log         LogConfig      `mapstructure:"log"`
	Descriptors []string       `mapstructure:"descriptors"`
}

// BackendConfig points at the REST backend.
type BackendConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	LookupTTL time.Duration `mapstructure:"lookup_ttl"`
	// Mock serves fixtures instead of calling BaseURL.
	Mock bool `mapstructure:"mock"`
}

// RefreshConfig controls the metrics cycle.
type RefreshConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	SaveTimeout  time.Duration `mapstructure:"save_timeout"`
}

// ServerConfig configures flowserver.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	BasePath    string `mapstructure:"base_path"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// PostgresConfig enables Postgres layout storage when DSN is set.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// NATSConfig enables event fan-out over NATS when URL is set.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("backend.lookup_ttl", "5m")
	v.SetDefault("backend.mock", false)
	v.SetDefault("refresh.interval", "5s")
	v.SetDefault("refresh.fetch_timeout", "30s")
	v.SetDefault("refresh.save_timeout", "15s")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.metrics_path", "/metrics")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.channel", "flowboard.events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("descriptors", []string{})
}

// Override sets a key after the file and environment are read, typically
// from a command line flag.
type Override struct {
	Key   string
	Value any
}

// Load reads path (optional) and applies FLOWBOARD_* environment overrides,
// then overrides.
func Load(path string, overrides ...Override) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config: %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	for _, o := range overrides {
		v.Set(o.Key, o.Value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if !c.Backend.Mock && c.Backend.BaseURL == "" {
		return errors.New("config: backend.base_url is required unless backend.mock is set")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("config: refresh.interval must be positive, got %s", c.Refresh.Interval)
	}
	return nil
}

// Logger builds the slog logger described by Log.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
