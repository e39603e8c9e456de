package stream

import (
	"context"
	"math"
	"time"

	"github.com/vx-labs/journal/journal"
)

type eofBehaviour int

const (
	// EOFBehaviourPoll will make the consumer poll for new records once the end of the stream is reached
	EOFBehaviourPoll eofBehaviour = 1 << iota
	// EOFBehaviourExit wil make the consumer exit once the end of the stream is reached
	EOFBehaviourExit eofBehaviour = 1 << iota
)

// ConsumerOpts describes replay preferences
type ConsumerOpts struct {
	Name           string
	MaxBatchSize   int
	FromSequenceNr uint64
	ToSequenceNr   uint64
	MaxRecordCount int64
	SkipDeleted    bool
	EOFBehaviour   eofBehaviour
	PollInterval   time.Duration
	Middleware     []func(Processor, ConsumerOpts) Processor
}

type poller struct {
	streamID  string
	next      uint64
	remaining int64
	ended     bool
	ch        chan Batch
	err       error
}

type Poller interface {
	Ready() <-chan Batch
	Error() error
}

func newPoller(ctx context.Context, r Replayer, streamID string, opts ConsumerOpts) Poller {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	s := &poller{
		streamID:  streamID,
		next:      opts.FromSequenceNr,
		remaining: opts.MaxRecordCount,
		ended:     opts.FromSequenceNr > opts.ToSequenceNr,
		ch:        make(chan Batch),
	}
	go s.run(ctx, r, opts)
	return s
}

func (s *poller) Error() error {
	return s.err
}
func (s *poller) Ready() <-chan Batch {
	return s.ch
}

func (s *poller) pageSize(opts ConsumerOpts) uint64 {
	if s.remaining >= 0 && s.remaining < int64(opts.MaxBatchSize) {
		return uint64(s.remaining)
	}
	return uint64(opts.MaxBatchSize)
}

// fetch returns the next page and whether the end of the range was reached.
func (s *poller) fetch(ctx context.Context, r Replayer, opts ConsumerOpts) (Batch, bool, error) {
	size := s.pageSize(opts)
	records, err := r.Replay(ctx, s.streamID, s.next, opts.ToSequenceNr, size)
	if err != nil {
		return Batch{}, false, err
	}
	if len(records) == 0 {
		return Batch{}, true, nil
	}
	last := records[len(records)-1].SequenceNr
	batch := Batch{
		StreamID:        s.streamID,
		FirstSequenceNr: records[0].SequenceNr,
		LastSequenceNr:  last,
		Records:         records,
	}
	if opts.SkipDeleted {
		batch.Records = make([]journal.Record, 0, len(records))
		for _, record := range records {
			if !record.Deleted {
				batch.Records = append(batch.Records, record)
			}
		}
	}
	// pages never exceed remaining, so only delivered records are counted
	if s.remaining > 0 {
		s.remaining -= int64(len(batch.Records))
	}
	if last >= opts.ToSequenceNr || last == math.MaxUint64 {
		s.ended = true
	} else {
		s.next = last + 1
	}
	exhausted := s.ended || uint64(len(records)) < size
	return batch, exhausted, nil
}

func (s *poller) run(ctx context.Context, r Replayer, opts ConsumerOpts) {
	defer close(s.ch)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	for {
		if s.remaining == 0 {
			return
		}
		batch, exhausted, err := s.fetch(ctx, r, opts)
		if err != nil {
			s.err = err
			return
		}
		if len(batch.Records) > 0 {
			select {
			case s.ch <- batch:
			case <-ctx.Done():
				return
			}
		}
		if exhausted {
			if opts.EOFBehaviour == EOFBehaviourExit || s.ended {
				return
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}
}
