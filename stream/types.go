package stream

import (
	"context"

	"github.com/vx-labs/journal/journal"
)

// Replayer reads a range of a stream, in ascending sequence order.
type Replayer interface {
	Replay(ctx context.Context, streamID string, from, to, max uint64) ([]journal.Record, error)
}

// Batch is a page of replayed records.
type Batch struct {
	StreamID        string
	FirstSequenceNr uint64
	LastSequenceNr  uint64
	Records         []journal.Record
}

// Processor is a function that will process replayed records
type Processor func(context.Context, Batch) error
