package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level describes severity of log message.
type Level = zerolog.Level

const (
	// LevelDebug enables verbose output.
	LevelDebug = zerolog.DebugLevel
	// LevelInfo is default log level.
	LevelInfo = zerolog.InfoLevel
	// LevelWarn reports recoverable problems.
	LevelWarn = zerolog.WarnLevel
	// LevelError reports failed operations.
	LevelError = zerolog.ErrorLevel
)

// ParseLevel converts string to Level, defaulting to info.
func ParseLevel(v string) Level {
	lvl, err := zerolog.ParseLevel(v)
	if err != nil || v == "" {
		return LevelInfo
	}
	return lvl
}

// Logger is a thin levelled wrapper around zerolog.
type Logger struct {
	zl zerolog.Logger
}

// New creates a configured logger. An empty path logs to stderr in console format,
// otherwise JSON lines are appended to the file.
func New(path string, level Level) (*Logger, error) {
	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = f
	}
	return NewWithWriter(output, level), nil
}

// NewWithWriter builds a logger writing JSON events to w.
func NewWithWriter(w io.Writer, level Level) *Logger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Str("app", "assetlabel").Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger tagged with a component name.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *Logger) logf(lvl Level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.zl.WithLevel(lvl).Msgf(format, args...)
}

// Infof logs informational messages.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

// Debugf logs verbose diagnostic messages.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

// Warnf logs recoverable problems.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

// Errorf logs errors.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

// Printf keeps compatibility with standard log API.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.Infof(format, args...)
}
