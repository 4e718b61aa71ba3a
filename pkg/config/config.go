// Package config loads xylem settings from .xylem.yaml, XYLEM_* environment
// variables and command-line flags, and builds the logger.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/chazu/xylem/pkg/app"
	"github.com/chazu/xylem/pkg/engine"
	"github.com/chazu/xylem/pkg/paver"
)

// Config holds all runtime configuration.
type Config struct {
	Fuzzy          float64       `mapstructure:"fuzzy"`
	Parallel       bool          `mapstructure:"parallel"`
	Workers        int           `mapstructure:"workers"`
	NonDestructive bool          `mapstructure:"non_destructive"`
	Glue           string        `mapstructure:"glue"`
	CheckInverted  bool          `mapstructure:"check_inverted"`
	UseOBB         bool          `mapstructure:"use_obb"`
	Timeout        time.Duration `mapstructure:"timeout"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
}

// SetDefaults registers the built-in defaults with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("fuzzy", 0.0)
	v.SetDefault("parallel", false)
	v.SetDefault("workers", 0)
	v.SetDefault("non_destructive", false)
	v.SetDefault("glue", "off")
	v.SetDefault("check_inverted", true)
	v.SetDefault("use_obb", false)
	v.SetDefault("timeout", engine.EvalTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration from the global viper instance, applying
// built-in defaults for any values not set by config file, environment or
// flags.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v.
func LoadFrom(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that viper cannot type-check.
func (c Config) Validate() error {
	if c.Fuzzy < 0 {
		return fmt.Errorf("config: fuzzy %g must not be negative", c.Fuzzy)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers %d must not be negative", c.Workers)
	}
	if _, err := paver.ParseGlueMode(c.Glue); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}

// PaverOptions returns the intersection options. The glue mode must have
// passed Validate.
func (c Config) PaverOptions(log *slog.Logger) paver.Options {
	glue, _ := paver.ParseGlueMode(c.Glue)
	return paver.Options{
		Fuzzy:          c.Fuzzy,
		RunParallel:    c.Parallel,
		Workers:        c.Workers,
		NonDestructive: c.NonDestructive,
		Glue:           glue,
		CheckInverted:  c.CheckInverted,
		UseOBB:         c.UseOBB,
		Logger:         log,
	}
}

// AppOptions returns the options of the evaluation pipeline.
func (c Config) AppOptions(log *slog.Logger) app.Options {
	return app.Options{
		Engine: engine.Options{Timeout: c.Timeout, Logger: log},
		Paver:  c.PaverOptions(log),
		Logger: log,
	}
}

// NewLogger builds a text or JSON logger writing to w at the configured
// level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q", s)
	}
	return level, nil
}
