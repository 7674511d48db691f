// Package log provides the agent's diagnostic log.
//
// stdout belongs to the transfer protocol, so diagnostics always go to a
// file (or any other writer) and never to stdout.
//
// Two logger variants are available:
//   - Logger: structured fields, used by the session and action paths
//   - SugaredLogger: printf-style logging for startup and CLI surfaces
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/lfsrclone/iox"
)

// LevelNone disables logging entirely.
const LevelNone = "NONE"

// Logger provides structured logging with session context.
// A nil *Logger is valid and discards everything.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// Context identifies the session in every log entry.
type Context struct {
	SessionID string
	PID       int
}

// NewLogger creates a logger writing JSON lines to w at the given level.
func NewLogger(w io.Writer, level zapcore.Level, ctx Context) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: encodeLevel,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	contextFields := []zap.Field{
		zap.String("session_id", ctx.SessionID),
	}
	if ctx.PID != 0 {
		contextFields = append(contextFields, zap.Int("pid", ctx.PID))
	}

	return &Logger{zap: zap.New(core).With(contextFields...)}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Open creates a logger appending to the file at path. The parent directory
// is created if needed. A level of NONE returns a no-op logger and a nil-safe
// closer without touching the filesystem.
func Open(path, level string, ctx Context) (*Logger, io.Closer, error) {
	lvl, enabled, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if !enabled {
		return NewNop(), iox.NopCloser, nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %q: %w", path, err)
	}

	return NewLogger(f, lvl, ctx), f, nil
}

// ParseLevel maps a level name to a zap level.
// Accepted names: DEBUG, INFO, WARNING (or WARN), ERROR, CRITICAL, NONE.
// The second return value is false for NONE.
func ParseLevel(name string) (zapcore.Level, bool, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return zapcore.DebugLevel, true, nil
	case "INFO":
		return zapcore.InfoLevel, true, nil
	case "WARNING", "WARN", "":
		return zapcore.WarnLevel, true, nil
	case "ERROR":
		return zapcore.ErrorLevel, true, nil
	case "CRITICAL":
		return zapcore.DPanicLevel, true, nil
	case LevelNone:
		return zapcore.InvalidLevel, false, nil
	default:
		return zapcore.InvalidLevel, false, fmt.Errorf("unknown log level %q", name)
	}
}

// encodeLevel renders DPanic as "critical". Loggers here are never built in
// development mode, so DPanic does not panic.
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == zapcore.DPanicLevel {
		enc.AppendString("critical")
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}

func (l *Logger) z() *zap.Logger {
	if l == nil || l.zap == nil {
		return zap.NewNop()
	}
	return l.zap
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.z().Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.z().Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.z().Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.z().Error(message, zap.Any("fields", fields))
}

// Critical logs a message that precedes a fatal exit.
func (l *Logger) Critical(message string, fields map[string]any) {
	l.z().DPanic(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z().Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.z().Sugar()}
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}
