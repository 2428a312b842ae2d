// Package config provides configuration loading and validation for the
// notification client.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration constants.
const (
	DefaultAPITimeout       = 30 * time.Second
	DefaultRealtimePort     = 9000
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultLocalCap         = 50
)

// FeedMode selects the notification feed's persistence strategy.
type FeedMode string

// Persistence strategies. Exactly one applies; they are not layered.
const (
	// FeedModeLocal keeps a capped in-memory list, cleared with the process.
	FeedModeLocal FeedMode = "local"

	// FeedModeSynced mirrors the server's durable list.
	FeedModeSynced FeedMode = "synced"
)

// Config holds the complete client configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Feed     FeedConfig     `yaml:"feed"`
	Login    LoginConfig    `yaml:"login"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig locates the gift service REST API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"GIFTSPIRE_API_BASE_URL"`
	Timeout time.Duration `yaml:"timeout"  env:"GIFTSPIRE_API_TIMEOUT"`
}

// RealtimeConfig locates the push server.
type RealtimeConfig struct {
	Scheme           string        `yaml:"scheme"            env:"GIFTSPIRE_WS_SCHEME"`
	Host             string        `yaml:"host"              env:"GIFTSPIRE_WS_HOST"`
	Port             int           `yaml:"port"              env:"GIFTSPIRE_WS_PORT"`
	AppKey           string        `yaml:"app_key"           env:"GIFTSPIRE_WS_APP_KEY"`
	AuthEndpoint     string        `yaml:"auth_endpoint"     env:"GIFTSPIRE_WS_AUTH_ENDPOINT"`
	ChannelPrefix    string        `yaml:"channel_prefix"    env:"GIFTSPIRE_WS_CHANNEL_PREFIX"`
	Event            string        `yaml:"event"             env:"GIFTSPIRE_WS_EVENT"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"GIFTSPIRE_WS_HANDSHAKE_TIMEOUT"`
}

// FeedConfig selects and sizes the notification feed.
type FeedConfig struct {
	Mode     FeedMode `yaml:"mode"      env:"GIFTSPIRE_FEED_MODE"`
	LocalCap int      `yaml:"local_cap" env:"GIFTSPIRE_FEED_LOCAL_CAP"`
}

// LoginConfig carries the daemon's credentials. Token, when set, skips the
// login call entirely.
type LoginConfig struct {
	Email    string `yaml:"email"    env:"GIFTSPIRE_EMAIL"`
	Password string `yaml:"password" env:"GIFTSPIRE_PASSWORD"`
	Token    string `yaml:"token"    env:"GIFTSPIRE_TOKEN"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"  env:"GIFTSPIRE_LOG_LEVEL"`  // debug | info | warn | error
	Format string `yaml:"format" env:"GIFTSPIRE_LOG_FORMAT"` // json | text
}

// Configuration errors.
var (
	ErrConfigNotFound   = errors.New("configuration file not found")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInvalidDuration  = errors.New("invalid duration format")
	ErrInvalidLogLevel  = errors.New("invalid log level: must be debug, info, warn, or error")
	ErrInvalidLogFormat = errors.New("invalid log format: must be json or text")
	ErrInvalidFeedMode  = errors.New("invalid feed mode: must be local or synced")
	ErrInvalidScheme    = errors.New("invalid realtime scheme: must be ws or wss")
)

// DefaultConfig returns a Config with sensible defaults for local
// development against the dev server.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: DefaultAPITimeout,
		},
		Realtime: RealtimeConfig{
			Scheme:           "ws",
			Host:             "localhost",
			Port:             DefaultRealtimePort,
			AppKey:           "giftspire",
			ChannelPrefix:    "private-App.Models.User.",
			Event:            "search.completed",
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		Feed: FeedConfig{
			Mode:     FeedModeSynced,
			LocalCap: DefaultLocalCap,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// AuthEndpoint returns the channel authorization URL, defaulting to the
// API's broadcasting endpoint when not set explicitly.
func (c *Config) AuthEndpoint() string {
	if c.Realtime.AuthEndpoint != "" {
		return c.Realtime.AuthEndpoint
	}
	return strings.TrimSuffix(c.API.BaseURL, "/") + "/broadcasting/auth"
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}

	if c.Realtime.Scheme != "ws" && c.Realtime.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidScheme, c.Realtime.Scheme))
	}
	if c.Realtime.Host == "" {
		errs = append(errs, errors.New("realtime.host is required"))
	}
	if c.Realtime.Port <= 0 || c.Realtime.Port > 65535 {
		errs = append(errs, fmt.Errorf("realtime.port must be between 1 and 65535, got %d", c.Realtime.Port))
	}
	if c.Realtime.AppKey == "" {
		errs = append(errs, errors.New("realtime.app_key is required"))
	}

	if c.Feed.Mode != FeedModeLocal && c.Feed.Mode != FeedModeSynced {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidFeedMode, c.Feed.Mode))
	}
	if c.Feed.Mode == FeedModeLocal && c.Feed.LocalCap <= 0 {
		errs = append(errs, errors.New("feed.local_cap must be positive in local mode"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ErrInvalidLogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ErrInvalidLogFormat)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
	}
	return nil
}

// IsDevelopment returns true if the log level indicates a development
// environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Log.Level, "debug")
}

// Load loads configuration from the default config file locations and
// environment variables.
func Load() (*Config, error) {
	return LoadFromPath("")
}

// LoadFromPath loads configuration from a specific file path. If path is
// empty, standard locations are searched and a missing file falls back to
// defaults plus environment overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := path
	if configPath == "" {
		if envPath := os.Getenv("GIFTSPIRE_CONFIG"); envPath != "" {
			configPath = envPath
		} else {
			for _, p := range []string{"configs/config.yaml", "config.yaml", "/etc/giftspire/config.yaml"} {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			// Only fatal when the path was asked for explicitly.
			if path != "" || os.Getenv("GIFTSPIRE_CONFIG") != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}
	return nil
}

// loadFromEnv applies environment variable overrides declared by `env`
// struct tags, recursing through nested sections.
func loadFromEnv(cfg *Config) error {
	return loadEnvToStruct(reflect.ValueOf(cfg).Elem())
}

func loadEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := loadEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}
	return nil
}

func setFieldFromEnv(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidDuration, value)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %s", value)
			}
			field.SetInt(i)
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
