package stream

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func PerformanceLogger(logger *zap.Logger, processor Processor) Processor {
	return func(ctx context.Context, batch Batch) error {
		if len(batch.Records) > 0 {
			start := time.Now()
			err := processor(ctx, batch)
			l := logger.With(zap.Int("batch_size", len(batch.Records)),
				zap.String("batch_stream_id", batch.StreamID),
				zap.Uint64("batch_first_sequence_nr", batch.FirstSequenceNr),
				zap.Duration("batch_processing_time", time.Since(start)))

			if err == nil {
				l.Info("stream processed")
			} else {
				l.Error("stream processing failed", zap.Error(err))
			}
			return err
		}
		return nil
	}
}
