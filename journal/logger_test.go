package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestL(t *testing.T) {
	t.Run("should return a no-op logger by default", func(t *testing.T) {
		require.Equal(t, defaultLogger, L(context.Background()))
	})
	t.Run("should carry fields", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		ctx := StoreLogger(context.Background(), zap.New(core))
		ctx = AddFields(ctx, zap.String("journal_stream_id", "p1"))
		L(ctx).Info("hello")
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		require.Equal(t, "hello", entry.Message)
		require.Equal(t, "p1", entry.ContextMap()["journal_stream_id"])
	})
}
