package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	sugar *zap.SugaredLogger
	level string
	file  *os.File
}

// NewLogger writes to stderr. Interactive sessions should use NewFileLogger
// since the terminal UI owns the screen.
func NewLogger(level string) *Logger {
	return newLogger(level, os.Stderr)
}

func NewFileLogger(level, path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l := newLogger(level, f)
	l.file = f
	return l, nil
}

func NewNopLogger() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar(), level: "info"}
}

func newLogger(level string, w io.Writer) *Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), parseLevel(level))
	return &Logger{sugar: zap.New(core).Sugar(), level: level}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Level() string {
	return l.level
}

func (l *Logger) Debugf(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{sugar: l.sugar.Named(name), level: l.level}
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Close flushes the logger and releases the file opened by NewFileLogger.
// Loggers returned by Named do not own the file.
func (l *Logger) Close() error {
	err := l.Sync()
	if l.file == nil {
		return err
	}
	f := l.file
	l.file = nil
	return f.Close()
}
