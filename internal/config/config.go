// Package config provides configuration loading for frontdeskd.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root frontdeskd configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	NATS     NATSConfig     `koanf:"nats"`
	Oracle   OracleConfig   `koanf:"oracle"`
	Business BusinessConfig `koanf:"business"`
	Session  SessionConfig  `koanf:"session"`
	Sweeper  SweeperConfig  `koanf:"sweeper"`
	Logging  LoggingConfig  `koanf:"logging"`

	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds the dashboard HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds the badger store settings.
type StoreConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// NATSConfig holds notification transport settings. An empty URL
// disables NATS; notifications fall back to the console.
type NATSConfig struct {
	URL string `koanf:"url"`
}

// OracleConfig holds the LLM endpoint settings. Any OpenAI-compatible
// endpoint works.
type OracleConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
}

// BusinessConfig holds the static business facts rendered into prompts.
type BusinessConfig struct {
	Name     string `koanf:"name"`
	Hours    string `koanf:"hours"`
	Phone    string `koanf:"phone"`
	Services string `koanf:"services"`
	Pricing  string `koanf:"pricing"`
	Location string `koanf:"location"`
}

// SessionConfig holds per-call session settings.
type SessionConfig struct {
	MaxDuration   time.Duration `koanf:"max_duration"`
	ContextWindow int           `koanf:"context_window"`
}

// SweeperConfig holds the stale-request timeout sweep settings.
type SweeperConfig struct {
	Interval time.Duration `koanf:"interval"`
	MaxAge   time.Duration `koanf:"max_age"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry settings. Metrics always flow to
// the /metrics endpoint; trace export needs an OTLP endpoint.
type TelemetryConfig struct {
	TraceEndpoint string  `koanf:"trace_endpoint"`
	TraceInsecure bool    `koanf:"trace_insecure"`
	SampleRate    float64 `koanf:"sample_rate"`
}

// Validate checks the configuration for invalid values. Defaults are
// applied before validation, so missing optional fields never fail.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweeper.interval must be positive, got %s", c.Sweeper.Interval)
	}
	if c.Sweeper.MaxAge <= 0 {
		return fmt.Errorf("sweeper.max_age must be positive, got %s", c.Sweeper.MaxAge)
	}
	if c.Session.MaxDuration <= 0 {
		return fmt.Errorf("session.max_duration must be positive, got %s", c.Session.MaxDuration)
	}
	if c.Session.ContextWindow <= 0 {
		return fmt.Errorf("session.context_window must be positive, got %d", c.Session.ContextWindow)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %g", c.Telemetry.SampleRate)
	}

	return nil
}
