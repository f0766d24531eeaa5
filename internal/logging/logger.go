// Package logging provides the structured logger used across areum,
// backed by log/slog with per-component child loggers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the structured logging interface used by areum components.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, err error, msg string, fields ...any)
	Error(ctx context.Context, err error, msg string, fields ...any)

	With(fields ...any) Logger
	WithComponent(component string) Logger
}

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
	Output io.Writer
}

// DefaultConfig returns the default logger configuration: text output to
// stdout at info level.
func DefaultConfig() *Config {
	return &Config{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: os.Stdout,
	}
}

type areumLogger struct {
	logger    *slog.Logger
	component string
}

// NewLogger creates a new structured logger from config. A nil config uses
// DefaultConfig.
func NewLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	opts := &slog.HandlerOptions{Level: config.Level}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &areumLogger{logger: slog.New(handler)}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() Logger {
	return &areumLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *areumLogger) Debug(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, slog.LevelDebug, nil, msg, fields...)
}

func (l *areumLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, slog.LevelInfo, nil, msg, fields...)
}

func (l *areumLogger) Warn(ctx context.Context, err error, msg string, fields ...any) {
	l.log(ctx, slog.LevelWarn, err, msg, fields...)
}

func (l *areumLogger) Error(ctx context.Context, err error, msg string, fields ...any) {
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

// With returns a child logger carrying additional key/value fields.
func (l *areumLogger) With(fields ...any) Logger {
	return &areumLogger{
		logger:    l.logger.With(fields...),
		component: l.component,
	}
}

// WithComponent returns a child logger tagged with a component name.
func (l *areumLogger) WithComponent(component string) Logger {
	return &areumLogger{
		logger:    l.logger,
		component: component,
	}
}

func (l *areumLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields ...any) {
	attrs := make([]any, 0, len(fields)+4)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = append(attrs, fields...)

	l.logger.Log(ctx, level, msg, attrs...)
}
