package journal

import (
	"context"

	"go.uber.org/zap"
)

type logKey struct{}

var defaultLogger = zap.NewNop()

// StoreLogger returns a copy of ctx carrying logger.
func StoreLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, logKey{}, logger)
}

// AddFields enriches the logger stored in ctx.
func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	return StoreLogger(ctx, L(ctx).With(fields...))
}

// L returns the logger stored in ctx, or a no-op logger.
func L(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return defaultLogger
	}
	logger, ok := ctx.Value(logKey{}).(*zap.Logger)
	if !ok || logger == nil {
		return defaultLogger
	}
	return logger
}
