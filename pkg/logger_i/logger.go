package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/akolanti/DocChat/internal/config"
)

type Logger struct {
	inner *slog.Logger
}

// Init installs the process-wide slog handler. JSON output in prod, text otherwise.
func Init(settings config.LogSettings) {
	InitWithWriter(settings, os.Stdout)
}

func InitWithWriter(settings config.LogSettings, w io.Writer) {
	options := &slog.HandlerOptions{
		Level: parseLevel(settings.Level),
	}

	var handler slog.Handler
	if settings.Prod {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	}
	return config.LOG_LEVEL_PROD
}

func NewLogger(section string) *Logger {
	return &Logger{
		inner: slog.Default().With("component", section),
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.inner.Error(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.inner.Warn(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.inner.Debug(msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}

// WithTrace tags the logger with the request trace id when the context carries one.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if trace := config.TraceID(ctx); trace != "" {
		return l.With(string(config.TRACE_ID_KEY), trace)
	}
	return l
}
