// Package logger provides the slog-backed implementation of the public
// log.Logger interface, including the OpenTelemetry handler middleware that
// stamps trace and span IDs onto records logged with a context.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	klonlog "github.com/klon-labs/klon/pkg/klon/v1/log"
)

const defaultLevel = slog.LevelInfo

// parseLogLevel converts a level string (case-insensitive) to a slog.Level.
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// defaultLogger implements the public klonlog.Logger interface on top of slog.
type defaultLogger struct {
	*slog.Logger
}

var _ klonlog.Logger = (*defaultLogger)(nil)

// NewLogger creates a Logger with the given level, format ("text" or "json")
// and writer (defaults to os.Stderr). The returned logger injects trace and
// span IDs when a record is logged with an active span context.
func NewLogger(levelStr string, formatStr string, writer io.Writer) klonlog.Logger {
	level := parseLogLevel(levelStr)
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelAttribute,
	}

	var baseHandler slog.Handler
	switch strings.ToLower(formatStr) {
	case "json":
		baseHandler = slog.NewJSONHandler(writer, opts)
	default:
		baseHandler = slog.NewTextHandler(writer, opts)
	}

	return &defaultLogger{
		Logger: slog.New(NewOtelHandler(baseHandler)),
	}
}

// NewDefaultLogger provides a text logger writing to stderr, for callers
// that have no configuration to hand.
func NewDefaultLogger(levelStr string) klonlog.Logger {
	return NewLogger(levelStr, "text", os.Stderr)
}

var levelStringMap = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

// replaceLevelAttribute renders the standard level attribute as an uppercase
// string ("INFO" rather than "LevelInfo").
func replaceLevelAttribute(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		levelStr, exists := levelStringMap[level]
		if !exists {
			levelStr = level.String()
		}
		a.Value = slog.StringValue(levelStr)
	}
	return a
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelDebug) {
		l.Logger.Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
	}
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelInfo) {
		l.Logger.Log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, args...))
	}
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelWarn) {
		l.Logger.Log(context.Background(), slog.LevelWarn, fmt.Sprintf(format, args...))
	}
}

// Errorf logs a formatted message at ERROR level. When the last argument is
// an error, known copy-engine error types are broken out into structured
// attributes instead of being flattened into the message.
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelError) {
		msg := fmt.Sprintf(format, args...)
		l.logHelper(context.Background(), slog.LevelError, msg, args...)
	}
}

// logHelper inspects the last argument for structured error types and
// attaches their fields as attributes.
func (l *defaultLogger) logHelper(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	logArgs := []any{}

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			var hookErr *klonerrors.HookError
			var reconErr *klonerrors.ReconstructionError
			switch {
			case errors.As(err, &hookErr):
				logArgs = append(logArgs,
					slog.String("error_type", "HookError"),
					slog.String("hook", hookErr.Hook),
					slog.String("type_name", hookErr.TypeName),
				)
				if hookErr.Cause != nil {
					logArgs = append(logArgs, slog.String("error", hookErr.Cause.Error()))
				} else {
					logArgs = append(logArgs, slog.String("error", hookErr.Error()))
				}
			case errors.As(err, &reconErr):
				logArgs = append(logArgs,
					slog.String("error_type", "ReconstructionError"),
					slog.String("type_name", reconErr.TypeName),
					slog.String("error", reconErr.Error()),
				)
			default:
				logArgs = append(logArgs, slog.String("error", err.Error()))
			}
		}
	}
	l.Logger.Log(ctx, level, msg, logArgs...)
}

func (l *defaultLogger) Log(level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(context.Background(), level, msg, args...)
}

func (l *defaultLogger) LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *defaultLogger) With(args ...interface{}) klonlog.Logger {
	return &defaultLogger{Logger: l.Logger.With(args...)}
}

func (l *defaultLogger) IsEnabled(level slog.Level) bool {
	return l.Logger.Enabled(context.Background(), level)
}

// OtelHandler is slog.Handler middleware that injects trace_id and span_id
// attributes when the logging context carries a valid span.
type OtelHandler struct {
	next slog.Handler
}

// NewOtelHandler wraps next with span-context injection.
func NewOtelHandler(next slog.Handler) *OtelHandler {
	return &OtelHandler{next: next}
}

func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OtelHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		record.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewOtelHandler(h.next.WithAttrs(attrs))
}

func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return NewOtelHandler(h.next.WithGroup(name))
}
