// Package config carries the loaded configuration and logger through command
// contexts, so the commands package can reach them without importing cli.
package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	intconfig "github.com/leapstack-labs/sqlgate/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the loaded sqlgate configuration.
type Config = intconfig.Config

type (
	loggerKey struct{}
	configKey struct{}
	fileKey   struct{}
)

// WithLogger stores a logger in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores the loaded configuration and the file it came from.
func WithConfig(ctx context.Context, cfg *Config, file string) context.Context {
	ctx = context.WithValue(ctx, configKey{}, cfg)
	return context.WithValue(ctx, fileKey{}, file)
}

// GetConfig retrieves the configuration from the command context, or nil.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}

// GetConfigFileUsed returns the path of the loaded config file, if any.
func GetConfigFileUsed(ctx context.Context) string {
	s, _ := ctx.Value(fileKey{}).(string)
	return s
}

// NewLogger builds the process logger from the log settings. When lc.File is
// set, records are also written as JSON to a size-rotated file; the returned
// closer releases it.
func NewLogger(w io.Writer, lc intconfig.LogConfig) (*slog.Logger, io.Closer) {
	level, err := intconfig.ParseLevel(lc.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		console = slog.NewJSONHandler(w, opts)
	} else {
		console = slog.NewTextHandler(w, opts)
	}
	if lc.File == "" {
		return slog.New(console), nopCloser{}
	}

	rotating := &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
	}
	return slog.New(fanout{console, slog.NewJSONHandler(rotating, opts)}), rotating
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
