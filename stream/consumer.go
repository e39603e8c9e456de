package stream

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

type consumer struct {
	opts ConsumerOpts
}
type consumerOpts func(*ConsumerOpts)

func FromSequenceNr(v uint64) consumerOpts {
	return func(c *ConsumerOpts) { c.FromSequenceNr = v }
}
func ToSequenceNr(v uint64) consumerOpts {
	return func(c *ConsumerOpts) { c.ToSequenceNr = v }
}
func WithMaxRecordCount(o int64) consumerOpts {
	return func(c *ConsumerOpts) { c.MaxRecordCount = o }
}
func WithMaxBatchSize(v int) consumerOpts {
	return func(c *ConsumerOpts) { c.MaxBatchSize = v }
}
func WithEOFBehaviour(v eofBehaviour) consumerOpts {
	return func(c *ConsumerOpts) { c.EOFBehaviour = v }
}
func WithPollInterval(v time.Duration) consumerOpts {
	return func(c *ConsumerOpts) { c.PollInterval = v }
}
func WithName(v string) consumerOpts {
	return func(c *ConsumerOpts) { c.Name = v }
}

// SkipDeleted hides soft-deleted records from the processor.
func SkipDeleted() consumerOpts {
	return func(c *ConsumerOpts) { c.SkipDeleted = true }
}
func WithPerformanceLogging(logger *zap.Logger) consumerOpts {
	return func(c *ConsumerOpts) {
		c.Middleware = append(c.Middleware, func(p Processor, opts ConsumerOpts) Processor {
			l := logger
			if opts.Name != "" {
				l = l.With(zap.String("consumer_name", opts.Name))
			}
			l = l.With(
				zap.Int("consumer_max_batch_size", opts.MaxBatchSize),
			)
			return PerformanceLogger(l, p)
		})
	}
}

type Consumer interface {
	Consume(ctx context.Context, r Replayer, streamID string, processor Processor) error
}

func NewConsumer(opts ...consumerOpts) Consumer {
	config := ConsumerOpts{
		MaxBatchSize:   10,
		EOFBehaviour:   EOFBehaviourExit,
		PollInterval:   100 * time.Millisecond,
		FromSequenceNr: 0,
		ToSequenceNr:   math.MaxUint64,
		MaxRecordCount: -1,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return consumer{opts: config}
}

func (c consumer) Consume(ctx context.Context, r Replayer, streamID string, processor Processor) error {
	return consume(ctx, r, streamID, c.opts, processor)
}
