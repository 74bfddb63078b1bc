package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "SITECONTENT"

// Config keys.
const (
	cfgPort           = "port"
	cfgDatabaseURL    = "database_url"
	cfgSeedFile       = "seed_file"
	cfgLogLevel       = "log_level"
	cfgLogFormat      = "log_format"
	cfgAllowedOrigins = "allowed_origins"
	cfgEventBuffer    = "event_buffer"
)

// config is the resolved server configuration.
type config struct {
	Port           int      `mapstructure:"port"`
	DatabaseURL    string   `mapstructure:"database_url"`
	SeedFile       string   `mapstructure:"seed_file"` // "default" seeds the embedded demo content
	LogLevel       string   `mapstructure:"log_level"`
	LogFormat      string   `mapstructure:"log_format"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	EventBuffer    int      `mapstructure:"event_buffer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgPort, 8080)
	v.SetDefault(cfgDatabaseURL, "file:sitecontent.db")
	v.SetDefault(cfgSeedFile, "")
	v.SetDefault(cfgLogLevel, "info")
	v.SetDefault(cfgLogFormat, "text")
	v.SetDefault(cfgAllowedOrigins, []string{})
	v.SetDefault(cfgEventBuffer, 256)
}

// loadConfig resolves flags, SITECONTENT_* environment variables and the
// optional YAML file, in that order of precedence.
func loadConfig(v *viper.Viper, file string) (config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("sitecontent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("decode config: %w", err)
	}
	// A comma separated env var arrives as a single element.
	if len(cfg.AllowedOrigins) == 1 && strings.Contains(cfg.AllowedOrigins[0], ",") {
		cfg.AllowedOrigins = strings.Split(cfg.AllowedOrigins[0], ",")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// newLogger builds the process logger from the configured level and format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}
