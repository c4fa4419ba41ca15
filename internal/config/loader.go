package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix scopes the environment override namespace.
	envPrefix = "FRONTDESK_"
)

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FRONTDESK_SERVER_PORT, FRONTDESK_ORACLE_API_KEY, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// The configPath parameter is optional; with an empty path only
// environment variables and defaults apply.
//
// Environment variables use underscore separators and are uppercased.
// The transformer splits on the first underscore after the prefix:
//
//	FRONTDESK_SERVER_PORT      -> server.port
//	FRONTDESK_ORACLE_BASE_URL  -> oracle.base_url
//	FRONTDESK_STORE_IN_MEMORY  -> store.in_memory
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			f, err := os.Open(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// FRONTDESK_SECTION_FIELD_NAME -> section.field_name
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Store.Path == "" && !cfg.Store.InMemory {
		cfg.Store.Path = defaultStorePath()
	}

	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "gpt-4o-mini"
	}

	if cfg.Business.Name == "" {
		cfg.Business.Name = "Bella's Hair Salon"
	}
	if cfg.Business.Hours == "" {
		cfg.Business.Hours = "Monday-Saturday 9am-7pm, Sunday closed"
	}

	if cfg.Session.MaxDuration == 0 {
		cfg.Session.MaxDuration = time.Hour
	}
	if cfg.Session.ContextWindow == 0 {
		cfg.Session.ContextWindow = 5
	}

	if cfg.Sweeper.Interval == 0 {
		cfg.Sweeper.Interval = 5 * time.Minute
	}
	if cfg.Sweeper.MaxAge == 0 {
		cfg.Sweeper.MaxAge = 24 * time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
}

// defaultStorePath is the badger directory used when none is
// configured.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "frontdeskd-data"
	}
	return filepath.Join(home, ".local", "share", "frontdeskd")
}
