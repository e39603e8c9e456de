package journal

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vx-labs/journal/journal/stats"
	"go.uber.org/zap"
)

type appendRequest struct {
	batch Batch
	reply chan error
}
type deleteRequest struct {
	streamID     string
	toSequenceNr uint64
	hard         bool
	reply        chan error
}
type highestSequenceNrRequest struct {
	streamID string
	reply    chan uint64
}
type replayRequest struct {
	streamID string
	from     uint64
	to       uint64
	max      uint64
	reply    chan []Record
}
type listStreamsRequest struct {
	reply chan []string
}

type envelope struct {
	submitted time.Time
	request   interface{}
}

// Store owns every stream log. A single goroutine applies requests one at a
// time, in arrival order; nothing else touches the logs.
type Store struct {
	requests chan envelope
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
	logger   *zap.Logger

	logs map[string][]Record
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		requests: make(chan envelope),
		cancel:   cancel,
		done:     make(chan struct{}),
		logger:   logger,
		logs:     make(map[string][]Record),
	}
	go s.run(ctx)
	return s
}

// Close stops the sequencer. Requests already picked up are completed first.
// What the store held is removed from the process-wide storage gauges.
func (s *Store) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		held := 0
		for _, current := range s.logs {
			held += len(current)
		}
		stats.Gauge("storedStreams").Sub(float64(len(s.logs)))
		stats.Gauge("storedRecords").Sub(float64(held))
		s.logger.Debug("store sequencer stopped", zap.Int("store_stream_count", len(s.logs)), zap.Int("store_record_count", held))
	})
	return nil
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-s.requests:
			stats.Histogram("sequencerQueueWait").Observe(stats.MilisecondsElapsed(env.submitted))
			s.apply(env.request)
		}
	}
}

func (s *Store) apply(request interface{}) {
	start := time.Now()
	var operation string
	switch request := request.(type) {
	case appendRequest:
		operation = "append"
		s.append(request.batch)
		request.reply <- nil
	case deleteRequest:
		operation = "delete_to"
		s.deleteTo(request.streamID, request.toSequenceNr, request.hard)
		request.reply <- nil
	case highestSequenceNrRequest:
		operation = "highest_sequence_nr"
		request.reply <- s.highestSequenceNr(request.streamID)
	case replayRequest:
		operation = "replay"
		request.reply <- s.replay(request.streamID, request.from, request.to, request.max)
	case listStreamsRequest:
		operation = "list_streams"
		request.reply <- s.listStreams()
	default:
		s.logger.Error("unknown store request", zap.Any("store_request", request))
		return
	}
	stats.HistogramVec("sequencerProcessing").WithLabelValues(operation).Observe(stats.MilisecondsElapsed(start))
}

// submit hands request to the sequencer. Once it has been accepted, the
// request runs to completion whatever happens to ctx.
func (s *Store) submit(ctx context.Context, request interface{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStoreClosed
	case s.requests <- envelope{submitted: time.Now(), request: request}:
		return nil
	}
}

func awaitReply(ctx context.Context, reply <-chan error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-reply:
		return err
	}
}

// Append concatenates the batch records to the stream log, creating it if
// needed.
func (s *Store) Append(ctx context.Context, batch Batch) error {
	reply := make(chan error, 1)
	err := s.submit(ctx, appendRequest{batch: batch, reply: reply})
	if err != nil {
		return err
	}
	return awaitReply(ctx, reply)
}

// DeleteTo deletes every record of the stream with a sequence number lower or
// equal to toSequenceNr. Soft deletion keeps the records and flags them.
func (s *Store) DeleteTo(ctx context.Context, streamID string, toSequenceNr uint64, hard bool) error {
	reply := make(chan error, 1)
	err := s.submit(ctx, deleteRequest{streamID: streamID, toSequenceNr: toSequenceNr, hard: hard, reply: reply})
	if err != nil {
		return err
	}
	return awaitReply(ctx, reply)
}

// HighestSequenceNr returns the highest sequence number held by the stream, or
// 0. Unknown streams become known.
func (s *Store) HighestSequenceNr(ctx context.Context, streamID string) (uint64, error) {
	reply := make(chan uint64, 1)
	err := s.submit(ctx, highestSequenceNrRequest{streamID: streamID, reply: reply})
	if err != nil {
		return 0, err
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case v := <-reply:
		return v, nil
	}
}

// Replay returns the records of the stream within [from, to], in ascending
// sequence order, at most max of them.
func (s *Store) Replay(ctx context.Context, streamID string, from, to, max uint64) ([]Record, error) {
	reply := make(chan []Record, 1)
	err := s.submit(ctx, replayRequest{streamID: streamID, from: from, to: to, max: max, reply: reply})
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v := <-reply:
		return v, nil
	}
}

// ListStreams returns every known stream id, in no particular order.
func (s *Store) ListStreams(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	err := s.submit(ctx, listStreamsRequest{reply: reply})
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v := <-reply:
		return v, nil
	}
}

func (s *Store) append(batch Batch) {
	current, known := s.logs[batch.StreamID]
	if !known {
		stats.Gauge("storedStreams").Inc()
	}
	appended := 0
	for _, record := range batch.Records {
		if record.StreamID != batch.StreamID {
			s.logger.Warn("record of another stream skipped",
				zap.String("store_stream_id", batch.StreamID), zap.String("store_record_stream_id", record.StreamID), zap.Uint64("store_sequence_nr", record.SequenceNr))
			continue
		}
		current = append(current, record)
		appended++
	}
	s.logs[batch.StreamID] = current
	stats.Gauge("storedRecords").Add(float64(appended))
}

func (s *Store) deleteTo(streamID string, toSequenceNr uint64, hard bool) {
	current, ok := s.logs[streamID]
	if !ok {
		return
	}
	if !hard {
		for idx := range current {
			if current[idx].SequenceNr <= toSequenceNr {
				current[idx] = current[idx].markDeleted()
			}
		}
		return
	}
	kept := make([]Record, 0, len(current))
	for _, record := range current {
		if record.SequenceNr > toSequenceNr {
			kept = append(kept, record)
		}
	}
	s.logs[streamID] = kept
	removed := len(current) - len(kept)
	if removed > 0 {
		s.logger.Debug("records removed",
			zap.String("store_stream_id", streamID), zap.Uint64("store_to_sequence_nr", toSequenceNr), zap.Int("store_removed_count", removed))
		stats.Gauge("storedRecords").Sub(float64(removed))
	}
}

func (s *Store) highestSequenceNr(streamID string) uint64 {
	current, known := s.logs[streamID]
	if len(current) == 0 {
		if !known {
			s.logs[streamID] = []Record{}
			stats.Gauge("storedStreams").Inc()
		}
		return 0
	}
	var highest uint64
	for _, record := range current {
		if record.SequenceNr > highest {
			highest = record.SequenceNr
		}
	}
	return highest
}

func (s *Store) replay(streamID string, from, to, max uint64) []Record {
	current := s.logs[streamID]
	out := make([]Record, 0)
	for _, record := range current {
		if record.SequenceNr >= from && record.SequenceNr <= to {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SequenceNr < out[j].SequenceNr })
	if max <= math.MaxInt32 && uint64(len(out)) > max {
		out = out[:max]
	}
	return out
}

func (s *Store) listStreams() []string {
	out := make([]string, 0, len(s.logs))
	for streamID := range s.logs {
		out = append(out, streamID)
	}
	return out
}
