// Package config loads junction CLI configuration with viper.
//
// Values come from, in increasing priority: defaults, a YAML config file,
// JUNCTION_* environment variables, and command-line flags bound by the CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable viper reads.
// JUNCTION_LOG_LEVEL maps to log.level.
const EnvPrefix = "JUNCTION"

// Config holds all junction CLI settings.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
}

// LogConfig controls the slog handler the CLI installs.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	// Format is text or json.
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// StoreConfig locates the firing journal.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables journaling for run.
	Path string `mapstructure:"path"`
}

// ScenarioConfig tunes scenario runs.
type ScenarioConfig struct {
	// StepTimeoutMs bounds every blocking step.
	StepTimeoutMs int `mapstructure:"step_timeout_ms" validate:"min=1"`
}

// StepTimeout returns StepTimeoutMs as a duration.
func (c *ScenarioConfig) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutMs) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Scenario: ScenarioConfig{
			StepTimeoutMs: 5000,
		},
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetDefault("store.path", defaults.Store.Path)

	v.SetDefault("scenario.step_timeout_ms", defaults.Scenario.StepTimeoutMs)
}

// New returns a viper instance with defaults, environment binding and the
// config file search path set up. cfgFile overrides the search when non-empty.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	// JUNCTION_SCENARIO_STEP_TIMEOUT_MS for scenario.step_timeout_ms
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file into v.
// A missing file is not an error unless it was named explicitly.
func Read(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !explicit && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Load reads the configuration from v into a Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}

	return &cfg, nil
}

// Dir returns the user's junction config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "junction")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".junction"
	}
	return filepath.Join(home, ".config", "junction")
}

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config key (e.g., "log.level")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}()

// Validate checks c and returns every problem found.
func (c *Config) Validate() ValidationErrors {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return ValidationErrors{{Field: "config", Value: c, Message: err.Error()}}
	}

	errs := make(ValidationErrors, 0, len(ves))
	for _, fe := range ves {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		msg := fmt.Sprintf("failed %s", fe.Tag())
		switch fe.Tag() {
		case "oneof":
			msg = fmt.Sprintf("must be one of [%s]", fe.Param())
		case "min":
			msg = fmt.Sprintf("must be at least %s", fe.Param())
		}
		errs = append(errs, ValidationError{Field: field, Value: fe.Value(), Message: msg})
	}
	return errs
}

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c LogConfig) level() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
