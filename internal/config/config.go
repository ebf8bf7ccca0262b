// Package config loads runtime configuration from a TOML file (path from
// CONFIG_FILE, default ./push_config.toml) overridable by push_-prefixed
// environment variables, following the settings layout of the original
// bitrix-push-workspace settings.rs, generalized with the ambient server/
// websocket/metrics sections this project's reference server carries.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the push server.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Security  SecurityConfig  `mapstructure:"security"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// GeneralConfig carries the listener port and worker count, matching the
// original settings.rs [general] section.
type GeneralConfig struct {
	Port    int `mapstructure:"port"`
	Workers int `mapstructure:"workers"`
}

// SecurityConfig toggles and keys channel-signature verification,
// matching the original settings.rs [security] section.
type SecurityConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Key     string `mapstructure:"key"`
}

// LogConfig controls the zap logger, matching the original settings.rs
// [log] section plus the ambient development-mode flag and sampling
// thresholds this project exposes as settings rather than hardcoding.
type LogConfig struct {
	Level            string `mapstructure:"level"`
	Development      bool   `mapstructure:"development"`
	SampleInitial    int    `mapstructure:"sample_initial"`
	SampleThereafter int    `mapstructure:"sample_thereafter"`
	ServiceName      string `mapstructure:"service_name"`
}

// ServerConfig contains ambient HTTP listener tuning and the REDESIGN-
// flagged plain-publish body size bound.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// WebSocketConfig controls the subscriber session layer.
type WebSocketConfig struct {
	SubscribePath   string `mapstructure:"subscribe_path"`
	PublishPath     string `mapstructure:"publish_path"`
	SendChannelSize int    `mapstructure:"send_channel_size"`
}

// MetricsConfig controls the Prometheus diagnostics endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// Load reads configuration from CONFIG_FILE (or ./push_config.toml) and
// push_-prefixed environment variable overrides.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("general.port", 8080)
	v.SetDefault("general.workers", 4)

	v.SetDefault("security.enabled", false)
	v.SetDefault("security.key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sample_initial", 100)
	v.SetDefault("log.sample_thereafter", 100)
	v.SetDefault("log.service_name", "bitrix-push-server")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20)) // 1 MiB

	v.SetDefault("websocket.subscribe_path", "/bitrix/subws/")
	v.SetDefault("websocket.publish_path", "/bitrix/pub/")
	v.SetDefault("websocket.send_channel_size", 256)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9095")
	v.SetDefault("metrics.endpoint", "/metrics")

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "./push_config.toml"
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("toml")

	v.SetEnvPrefix("push")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is legal: defaults and env-var overrides are
	// enough to run. A present-but-unparseable file is fatal.
	if _, statErr := os.Stat(configFile); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.WebSocket.SendChannelSize <= 0 {
		cfg.WebSocket.SendChannelSize = 256
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	return cfg, nil
}
