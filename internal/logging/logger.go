// Package logging is the service's structured logger. It keeps the
// Fields-map call style used across acme-shop services on top of zap.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields are structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger writes JSON log entries tagged with a component name.
type Logger struct {
	z *zap.Logger
}

// New builds a production logger for service at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func New(service, level string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Named returns a child logger for a component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{z: l.z.Named(component)}
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.z.Debug(msg, toZap(fields)...) }

func (l *Logger) Info(msg string, fields ...Fields) { l.z.Info(msg, toZap(fields)...) }

func (l *Logger) Warn(msg string, fields ...Fields) { l.z.Warn(msg, toZap(fields)...) }

func (l *Logger) Error(msg string, fields ...Fields) { l.z.Error(msg, toZap(fields)...) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) { l.z.Fatal(msg, toZap(fields)...) }

// Zap exposes the underlying logger for libraries that take one.
func (l *Logger) Zap() *zap.Logger { return l.z }

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.z.Sync() }

func toZap(fields []Fields) []zap.Field {
	n := 0
	for _, f := range fields {
		n += len(f)
	}
	if n == 0 {
		return nil
	}

	out := make([]zap.Field, 0, n)
	for _, f := range fields {
		for k, v := range f {
			if err, ok := v.(error); ok {
				out = append(out, zap.NamedError(k, err))
				continue
			}
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
