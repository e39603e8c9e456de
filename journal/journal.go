package journal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vx-labs/journal/journal/stats"
	"go.uber.org/zap"
)

// Journal is the caller-facing entry point: records are validated, then
// handed to the store. Every call is bounded by Config.CallTimeout.
type Journal struct {
	config    Config
	validator *Validator
	store     *Store
	logger    *zap.Logger
}

func New(config Config, registry *Registry, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}
	logger.Debug("journal started",
		zap.Bool("journal_full_serialization", config.FullSerialization),
		zap.Duration("journal_call_timeout", config.CallTimeout))
	return &Journal{
		config:    config,
		validator: NewValidator(config, registry),
		store:     NewStore(logger),
		logger:    logger,
	}
}

func (j *Journal) Close() error {
	return j.store.Close()
}

// call runs f under the journal deadline. A deadline expiry is reported as
// ErrTimeout: the store may still apply the request.
func (j *Journal) call(ctx context.Context, operation string, f func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, j.config.CallTimeout)
	defer cancel()
	err := f(ctx)
	result := "success"
	if err != nil {
		result = "failure"
		if errors.Cause(err) == context.DeadlineExceeded {
			result = "timeout"
			err = errors.Wrapf(ErrTimeout, "%s after %s", operation, j.config.CallTimeout)
		}
	}
	stats.HistogramVec("journalCalls").WithLabelValues(operation, result).Observe(stats.MilisecondsElapsed(start))
	return err
}

// Append validates records and appends them atomically to the stream.
func (j *Journal) Append(ctx context.Context, streamID string, records []Record) error {
	return j.call(ctx, "append", func(ctx context.Context) error {
		return j.append(ctx, streamID, records)
	})
}

func (j *Journal) append(ctx context.Context, streamID string, records []Record) error {
	batch, err := j.validator.Validate(streamID, records)
	if err != nil {
		stats.CounterVec("appendedRecords").WithLabelValues("rejected").Add(float64(len(records)))
		j.logger.Debug("batch rejected", zap.String("journal_stream_id", streamID),
			zap.Int("journal_batch_size", len(records)), zap.Error(err))
		return err
	}
	err = j.store.Append(ctx, batch)
	if err != nil {
		return err
	}
	stats.CounterVec("appendedRecords").WithLabelValues("accepted").Add(float64(batch.Len()))
	return nil
}

// AppendBatches applies each write as an independent atomic append and
// returns one result per write, in the same order.
func (j *Journal) AppendBatches(ctx context.Context, writes []AtomicWrite) []error {
	out := make([]error, len(writes))
	for idx, write := range writes {
		out[idx] = j.Append(ctx, write.StreamID, write.Records)
	}
	return out
}

func (j *Journal) DeleteTo(ctx context.Context, streamID string, toSequenceNr uint64, hard bool) error {
	return j.call(ctx, "delete_to", func(ctx context.Context) error {
		return j.store.DeleteTo(ctx, streamID, toSequenceNr, hard)
	})
}

func (j *Journal) HighestSequenceNr(ctx context.Context, streamID string) (uint64, error) {
	var out uint64
	err := j.call(ctx, "highest_sequence_nr", func(ctx context.Context) error {
		var err error
		out, err = j.store.HighestSequenceNr(ctx, streamID)
		return err
	})
	return out, err
}

func (j *Journal) Replay(ctx context.Context, streamID string, from, to, max uint64) ([]Record, error) {
	var out []Record
	err := j.call(ctx, "replay", func(ctx context.Context) error {
		var err error
		out, err = j.store.Replay(ctx, streamID, from, to, max)
		return err
	})
	return out, err
}

func (j *Journal) ListStreams(ctx context.Context) ([]string, error) {
	var out []string
	err := j.call(ctx, "list_streams", func(ctx context.Context) error {
		var err error
		out, err = j.store.ListStreams(ctx)
		return err
	})
	return out, err
}
