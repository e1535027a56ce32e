// Package config loads runtime configuration via github.com/spf13/viper,
// with optional watching of the config file via
// github.com/fsnotify/fsnotify (wired in by viper's WatchConfig) that
// hands each reloaded Config to a callback.
package config

import (
	"errors"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/jingkaihe/hostext/internal/errx"
)

// Sentinel errors for configuration load failures.
var (
	ErrReadConfig          = errors.New("config: read configuration")
	ErrInvalidPingInterval = errors.New("config: invalid ping interval")
	ErrInvalidName         = errors.New("config: extension name required")
)

// Config is the runtime's ambient configuration surface (§6: CLI/env).
type Config struct {
	Name                   string
	Version                string
	SDKVersion             string
	MinSDKVersion          string
	RegistrationSocketPath string
	PingInterval           time.Duration
	ConnectTimeout         time.Duration
	LogPath                string
}

const defaultPingInterval = 500 * time.Millisecond

// Defaults populates a viper instance with the runtime's defaults under
// the "extension." key prefix.
func Defaults(v *viper.Viper) {
	v.SetDefault("extension.version", "1.0.0")
	v.SetDefault("extension.sdk_version", "1.0.0")
	v.SetDefault("extension.min_sdk_version", "1.0.0")
	v.SetDefault("extension.ping_interval", defaultPingInterval)
	v.SetDefault("extension.connect_timeout", 5*time.Second)
	v.SetDefault("extension.log_path", "")
}

// Load reads path (any format viper recognizes) and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	Defaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errx.Wrap(ErrReadConfig, err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Name:                   v.GetString("extension.name"),
		Version:                v.GetString("extension.version"),
		SDKVersion:             v.GetString("extension.sdk_version"),
		MinSDKVersion:          v.GetString("extension.min_sdk_version"),
		RegistrationSocketPath: v.GetString("extension.registration_socket"),
		PingInterval:           v.GetDuration("extension.ping_interval"),
		ConnectTimeout:         v.GetDuration("extension.connect_timeout"),
		LogPath:                v.GetString("extension.log_path"),
	}
	if cfg.Name == "" {
		return nil, ErrInvalidName
	}
	if cfg.PingInterval <= 0 {
		return nil, errx.With(ErrInvalidPingInterval, "%s", cfg.PingInterval)
	}
	return cfg, nil
}

// Watch installs a viper file watcher that invokes onChange with the
// reloaded Config whenever the underlying file changes. Watch applies
// nothing itself; the callback receives every field, socket paths included.
func Watch(path string, onChange func(*Config)) (*viper.Viper, error) {
	v := viper.New()
	Defaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errx.Wrap(ErrReadConfig, err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := fromViper(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return v, nil
}
