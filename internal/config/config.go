// Package config loads querykit settings from an optional config file and
// QUERYKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend selects the storage implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
)

const envPrefix = "QUERYKIT"

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the backend. DSN and pool settings apply to postgres only.
type StorageConfig struct {
	Backend          Backend       `mapstructure:"backend"`
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	SlowQuery        time.Duration `mapstructure:"slow_query"`
	// Seed loads the shop fixtures into the memory backend at startup.
	Seed bool `mapstructure:"seed"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type HTTPConfig struct {
	CORSOrigins []string `mapstructure:"cors_origins"`
	Gzip        bool     `mapstructure:"gzip"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Addr is the listen address of the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("storage.backend", string(BackendMemory))
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.max_conns", 10)
	v.SetDefault("storage.min_conns", 1)
	v.SetDefault("storage.statement_timeout", 30*time.Second)
	v.SetDefault("storage.slow_query", 500*time.Millisecond)
	v.SetDefault("storage.seed", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.gzip", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads path (when non-empty) and the environment on top of the defaults.
// QUERYKIT_STORAGE_DSN overrides storage.dsn, and so on.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// Lists from the environment are comma-separated and may carry blanks.
	cfg.HTTP.CORSOrigins = splitList(strings.Join(cfg.HTTP.CORSOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of memory, postgres", c.Storage.Backend))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Storage.MinConns > c.Storage.MaxConns {
		errs = append(errs, fmt.Errorf("storage.min_conns %d exceeds storage.max_conns %d", c.Storage.MinConns, c.Storage.MaxConns))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
