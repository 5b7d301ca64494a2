// Package logging builds the zap logger used by the command line tool.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger. Level is a zap level name ("debug", "info",
// "warn", "error"); an empty Level means "warn". Development selects the
// human-readable console encoder instead of JSON.
type Config struct {
	Level       string `json:"log_level" yaml:"log_level"`
	Development bool   `json:"log_development" yaml:"log_development"`
}

// DefaultLevel is used when Config.Level is empty.
const DefaultLevel = "warn"

// New builds a logger writing to stderr.
func New(cfg Config) (*zap.Logger, error) {
	name := cfg.Level
	if name == "" {
		name = DefaultLevel
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", name, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// NewOrNop is New, falling back to a no-op logger when cfg is invalid.
func NewOrNop(cfg Config) *zap.Logger {
	l, err := New(cfg)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
