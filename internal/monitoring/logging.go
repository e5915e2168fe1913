package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel maps "debug", "info", "warn" and "error" to a LogLevel.
// Anything else yields LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat represents the output format for logs
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatText
)

// ParseLogFormat maps "json" and "text" to a LogFormat. Anything else yields FormatJSON.
func ParseLogFormat(s string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(s), "text") {
		return FormatText
	}
	return FormatJSON
}

// Logger is the logging contract used across idguard. Arguments after the
// message are slog key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerConfig configures the structured logger
type LoggerConfig struct {
	Level     LogLevel
	Format    LogFormat
	Output    io.Writer
	Component string
	Fields    map[string]any
}

// StructuredLogger is a slog backed Logger carrying service and component fields.
type StructuredLogger struct {
	logger *slog.Logger
}

// NewStructuredLogger creates a new structured logger with the given configuration
func NewStructuredLogger(config LoggerConfig) *StructuredLogger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.Level == LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(config.Output, opts)
	default:
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	logger := slog.New(handler).With("service", "idguard")
	if config.Component != "" {
		logger = logger.With("component", config.Component)
	}
	for k, v := range config.Fields {
		logger = logger.With(k, v)
	}

	return &StructuredLogger{logger: logger}
}

// NewLoggerFromEnvironment builds a JSON or text logger from IDGUARD_LOG_LEVEL
// and IDGUARD_LOG_FORMAT.
func NewLoggerFromEnvironment(component string) *StructuredLogger {
	return NewStructuredLogger(LoggerConfig{
		Level:     ParseLogLevel(os.Getenv("IDGUARD_LOG_LEVEL")),
		Format:    ParseLogFormat(os.Getenv("IDGUARD_LOG_FORMAT")),
		Component: component,
	})
}

// With returns a logger that adds args to every record.
func (l *StructuredLogger) With(args ...any) *StructuredLogger {
	return &StructuredLogger{logger: l.logger.With(args...)}
}

func (l *StructuredLogger) Debug(msg string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}

func (l *StructuredLogger) Info(msg string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelInfo, msg, args...)
}

func (l *StructuredLogger) Warn(msg string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelWarn, msg, args...)
}

func (l *StructuredLogger) Error(msg string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelError, msg, args...)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
