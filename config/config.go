// Package config holds the settings of the checklist command. Settings come
// from defaults, then an optional YAML file, then CHECKLIST_* environment
// variables, each overriding the last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ezachrisen/checklist"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Directory of template files; see template.Dir.
	Templates string `yaml:"templates" env:"CHECKLIST_TEMPLATES"`

	// SQLite database for autosaves and submissions.
	Database string `yaml:"database" env:"CHECKLIST_DATABASE"`

	// Retail organisations have no franchisees.
	Retail bool `yaml:"retail" env:"CHECKLIST_RETAIL"`

	AutosaveDelay time.Duration `yaml:"autosave_delay" env:"CHECKLIST_AUTOSAVE_DELAY"`
	SaveTimeout   time.Duration `yaml:"save_timeout" env:"CHECKLIST_SAVE_TIMEOUT"`

	Logging LoggingConfig `yaml:"logging" envPrefix:"CHECKLIST_LOG_"`
}

type LoggingConfig struct {
	// debug, info, warn, error, or off.
	Level string `yaml:"level" env:"LEVEL"`

	// Human-readable console output instead of JSON.
	Development bool `yaml:"development" env:"DEVELOPMENT"`
}

func Default() Config {
	return Config{
		Templates:     "templates",
		Database:      "checklist.db",
		AutosaveDelay: checklist.DefaultAutosaveDelay,
		SaveTimeout:   checklist.DefaultSaveTimeout,
		Logging:       LoggingConfig{Level: "info"},
	}
}

// Load reads the configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.AutosaveDelay < 0 {
		errs = append(errs, fmt.Errorf("autosave_delay must not be negative, got %s", c.AutosaveDelay))
	}
	if c.SaveTimeout <= 0 {
		errs = append(errs, fmt.Errorf("save_timeout must be positive, got %s", c.SaveTimeout))
	}
	if _, err := c.Logging.level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SessionOptions returns the session options the settings describe.
func (c Config) SessionOptions() []checklist.SessionOption {
	return []checklist.SessionOption{
		checklist.WithAutosaveDelay(c.AutosaveDelay),
		checklist.WithSaveTimeout(c.SaveTimeout),
	}
}

func (l LoggingConfig) level() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil && !l.off() {
		return lvl, fmt.Errorf("logging level: %w", err)
	}
	return lvl, nil
}

func (l LoggingConfig) off() bool {
	return strings.EqualFold(l.Level, "off")
}

// Build creates the logger.
func (l LoggingConfig) Build() (*zap.Logger, error) {
	if l.off() {
		return zap.NewNop(), nil
	}
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if l.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
