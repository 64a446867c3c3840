package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "querykit/internal/core/context"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestFromContext(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), l)
	ctx = appctx.WithRequest(ctx, &appctx.Request{ID: "req-1"})
	ctx = appctx.WithQuery(ctx, "order", "OrderFilters")

	Info(ctx, "list query compiled", "rows", 3)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "list query compiled", entry.Message)
	assert.Equal(t, map[string]any{
		"request_id":    "req-1",
		"entity":        "order",
		"filter_schema": "OrderFilters",
		"rows":          int64(3),
	}, entry.ContextMap())
}

func TestLevels(t *testing.T) {
	l, logs := observed(zapcore.WarnLevel)
	ctx := WithLogger(context.Background(), l)

	Debug(ctx, "debug")
	Info(ctx, "info")
	Warn(ctx, "warn")
	Error(ctx, "error")

	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("error").Len())
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "nonsense"})
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))

	l, err = New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))

	assert.Same(t, l, l.WithContext(context.Background()))
}
