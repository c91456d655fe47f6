package config

import (
	"io"
	"log/slog"
	"strings"
)

// LogOpts параметры логирования.
type LogOpts struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// SlogLevel уровень slog для значения из конфигурации.
func (o LogOpts) SlogLevel() slog.Level {
	switch strings.ToLower(o.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger создает логгер в w. Уровень читается из level, чтобы его можно
// было менять при перечитывании конфигурации.
func NewLogger(w io.Writer, opts LogOpts, level *slog.LevelVar) *slog.Logger {
	level.Set(opts.SlogLevel())
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
