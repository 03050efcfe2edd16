// Package config loads cozebridge configuration from a YAML file and the
// environment using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaguanLabs/cozebridge"
	"github.com/ZaguanLabs/cozebridge/logging"
	"github.com/ZaguanLabs/cozebridge/provider"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"

	// EnvPrefix prefixes every environment override, e.g. COZEBRIDGE_COZE_API_KEY.
	EnvPrefix = "COZEBRIDGE"
)

// Configuration holds all application configuration values.
type Configuration struct {
	Coze    CozeConfig    `mapstructure:"coze"`
	Poll    PollConfig    `mapstructure:"poll"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// CozeConfig holds the Coze credentials and client settings.
type CozeConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BotID             string `mapstructure:"bot_id"`
	BaseURL           string `mapstructure:"base_url"`
	UserID            string `mapstructure:"user_id"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// PollConfig holds the status polling policy.
type PollConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	IntervalMS  int `mapstructure:"interval_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds the HTTP host settings.
type ServerConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// ConfigError describes a failure while loading or validating configuration.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads configuration. When path is empty the file is searched in ".",
// "./configs" and "$HOME/.cozebridge"; a missing file is not an error.
// Environment variables override file values.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.cozebridge")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Op: "read", Err: err}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Op: "unmarshal", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coze.api_key", "")
	v.SetDefault("coze.bot_id", "")
	v.SetDefault("coze.base_url", provider.DefaultBaseURL)
	v.SetDefault("coze.user_id", provider.DefaultUserID)
	v.SetDefault("coze.timeout_seconds", int(provider.DefaultTimeout/time.Second))
	v.SetDefault("coze.requests_per_minute", 0)

	v.SetDefault("poll.max_attempts", cozebridge.DefaultMaxAttempts)
	v.SetDefault("poll.interval_ms", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
}

// Validate checks structural settings. Credentials are checked per
// translation so that bad values reach the host as config errors.
func (c *Configuration) Validate() error {
	var problems []string

	if c.Poll.MaxAttempts <= 0 {
		problems = append(problems, "poll.max_attempts must be positive")
	}
	if c.Poll.IntervalMS < 0 {
		problems = append(problems, "poll.interval_ms must not be negative")
	}
	if c.Coze.TimeoutSeconds <= 0 {
		problems = append(problems, "coze.timeout_seconds must be positive")
	}
	if c.Coze.RequestsPerMinute < 0 {
		problems = append(problems, "coze.requests_per_minute must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}

	if len(problems) > 0 {
		return &ConfigError{Op: "validate", Err: errors.New(strings.Join(problems, "; "))}
	}
	return nil
}

// Credentials returns the configured Coze credentials.
func (c *Configuration) Credentials() cozebridge.Credentials {
	return cozebridge.Credentials{APIKey: c.Coze.APIKey, BotID: c.Coze.BotID}
}

// PollPolicy returns the polling policy for the Bridge.
func (c *Configuration) PollPolicy() cozebridge.PollConfig {
	return cozebridge.PollConfig{
		MaxAttempts: c.Poll.MaxAttempts,
		Interval:    time.Duration(c.Poll.IntervalMS) * time.Millisecond,
	}
}

// ClientConfig returns the settings for the Coze HTTP client.
func (c *Configuration) ClientConfig() provider.CozeConfig {
	return provider.CozeConfig{
		BaseURL:           c.Coze.BaseURL,
		UserID:            c.Coze.UserID,
		Timeout:           time.Duration(c.Coze.TimeoutSeconds) * time.Second,
		RequestsPerMinute: c.Coze.RequestsPerMinute,
	}
}

// LoggingOptions returns the options for logging.New.
func (c *Configuration) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format}
}

// Addr returns the server listen address.
func (c *Configuration) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
