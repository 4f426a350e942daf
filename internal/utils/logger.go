// internal/utils/logger.go
package utils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the process logger.
type LogOptions struct {
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger wraps zap with the field-map call style used across the services.
type Logger struct {
	mu  sync.RWMutex
	zap *zap.Logger
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the process logger. Until InitLogger runs it writes
// development output to stderr.
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		z, err := zap.NewDevelopment()
		if err != nil {
			z = zap.NewNop()
		}
		globalLogger = &Logger{zap: z}
	})
	return globalLogger
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// InitLogger switches the global logger to a JSON file core rotated by
// lumberjack plus a console core on stdout.
func InitLogger(opts LogOptions) error {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "app.log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	})

	level := parseLevel(opts.Level)
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
	)

	logger := GetLogger()
	logger.mu.Lock()
	old := logger.zap
	// skip one frame for the wrapper methods below
	logger.zap = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zap.ErrorLevel))
	logger.mu.Unlock()
	_ = old.Sync()
	return nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Zap exposes the underlying logger for libraries that take one.
func (l *Logger) Zap() *zap.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zap
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.Zap().Sync()
}

func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if isSecretKey(k) {
			out = append(out, zap.String(k, "[REDACTED]"))
			continue
		}
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "api_key") || strings.Contains(k, "apikey") || strings.Contains(k, "secret")
}

func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.Zap().Debug(message, toFields(fields)...)
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.Zap().Info(message, toFields(fields)...)
}

func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.Zap().Warn(message, toFields(fields)...)
}

func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.Zap().Error(message, toFields(fields)...)
}

// Fatal logs and exits.
func (l *Logger) Fatal(message string, fields map[string]interface{}) {
	l.Zap().Fatal(message, toFields(fields)...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Zap().Sugar().Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Zap().Sugar().Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Zap().Sugar().Errorf(format, args...)
}
