// Package logger provides structured logging with context support.
package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "querykit/internal/core/context"
)

// Logger wraps zap.SugaredLogger with context-aware logging.
type Logger struct {
	*zap.SugaredLogger
}

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error; anything else means info
	Development bool   // console encoding with colored levels
	OutputPaths []string
}

// New creates a new Logger from configuration.
func New(cfg Config) (*Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}

	// Skip the package-level helpers so callers are reported.
	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{z.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

var fallback = sync.OnceValue(func() *Logger {
	l, err := New(Config{Level: "info", OutputPaths: []string{"stdout"}})
	if err != nil {
		return Nop()
	}
	return l
})

// WithContext attaches the request identifiers found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	kv := appctx.RequestFrom(ctx).Fields()
	if len(kv) == 0 {
		return l
	}
	return &Logger{l.SugaredLogger.With(kv...)}
}

type loggerKey struct{}

// WithLogger adds Logger to context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the context logger, or a stdout logger when none was
// installed, enriched with the request identifiers in ctx.
func FromContext(ctx context.Context) *Logger {
	l, ok := ctx.Value(loggerKey{}).(*Logger)
	if !ok {
		l = fallback()
	}
	return l.WithContext(ctx)
}

func Debug(ctx context.Context, msg string, kv ...any) { FromContext(ctx).Debugw(msg, kv...) }
func Info(ctx context.Context, msg string, kv ...any)  { FromContext(ctx).Infow(msg, kv...) }
func Warn(ctx context.Context, msg string, kv ...any)  { FromContext(ctx).Warnw(msg, kv...) }
func Error(ctx context.Context, msg string, kv ...any) { FromContext(ctx).Errorw(msg, kv...) }
