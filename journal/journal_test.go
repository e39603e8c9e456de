package journal

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJournal(t *testing.T) {
	ctx := context.Background()
	j := New(DefaultConfig(), nil, zap.NewNop())
	defer j.Close()

	t.Run("should append atomically", func(t *testing.T) {
		require.NoError(t, j.Append(ctx, "p1", records("p1", 1, 3)))
		err := j.Append(ctx, "p1", []Record{
			{StreamID: "p1", SequenceNr: 4, Payload: "d"},
			{StreamID: "p1", SequenceNr: 5, Payload: unbound{}},
		})
		require.True(t, IsRejection(err))
		out, err := j.Replay(ctx, "p1", 0, 100, 100)
		require.NoError(t, err)
		require.Equal(t, []uint64{1, 2, 3}, sequenceNrs(out))
	})
	t.Run("should not register streams of rejected batches", func(t *testing.T) {
		err := j.Append(ctx, "rejected", []Record{{StreamID: "rejected", SequenceNr: 1, Payload: unbound{}}})
		require.True(t, IsRejection(err))
		streams, err := j.ListStreams(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"p1"}, streams)
	})
	t.Run("should delete then report highest sequence number", func(t *testing.T) {
		require.NoError(t, j.DeleteTo(ctx, "p1", 2, false))
		highest, err := j.HighestSequenceNr(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, uint64(3), highest)
	})
}

func TestJournal_AppendBatches(t *testing.T) {
	ctx := context.Background()
	j := New(DefaultConfig(), nil, nil)
	defer j.Close()

	out := j.AppendBatches(ctx, []AtomicWrite{
		{StreamID: "a", Records: records("a", 1, 2)},
		{StreamID: "b", Records: []Record{{StreamID: "b", SequenceNr: 1, Payload: unbound{}}}},
		{StreamID: "c", Records: records("c", 1, 1)},
		{StreamID: "a", Records: records("a", 3, 4)},
	})
	t.Run("should report results positionally", func(t *testing.T) {
		require.Len(t, out, 4)
		require.NoError(t, out[0])
		require.True(t, IsRejection(out[1]))
		require.NoError(t, out[2])
		require.NoError(t, out[3])
	})
	t.Run("should apply accepted writes only", func(t *testing.T) {
		streams, err := j.ListStreams(ctx)
		require.NoError(t, err)
		sort.Strings(streams)
		require.Equal(t, []string{"a", "c"}, streams)
		replayed, err := j.Replay(ctx, "a", 1, 4, 10)
		require.NoError(t, err)
		require.Equal(t, []uint64{1, 2, 3, 4}, sequenceNrs(replayed))
	})
}

func TestJournal_Timeout(t *testing.T) {
	config := DefaultConfig()
	config.CallTimeout = 10 * time.Millisecond
	j := &Journal{
		config:    config,
		validator: NewValidator(config, nil),
		store:     stalledStore(),
		logger:    zap.NewNop(),
	}

	t.Run("should report a timeout when the sequencer does not answer", func(t *testing.T) {
		start := time.Now()
		err := j.Append(context.Background(), "p1", records("p1", 1, 1))
		require.True(t, errors.Is(err, ErrTimeout))
		require.True(t, time.Since(start) >= config.CallTimeout)
		_, err = j.HighestSequenceNr(context.Background(), "p1")
		require.Equal(t, ErrTimeout, errors.Cause(err))
	})
	t.Run("should reject invalid batches without reaching the sequencer", func(t *testing.T) {
		err := j.Append(context.Background(), "p1", []Record{{StreamID: "p1", SequenceNr: 1, Payload: unbound{}}})
		require.True(t, IsRejection(err))
	})
}

func TestConfig(t *testing.T) {
	config := DefaultConfig()
	require.False(t, config.FullSerialization)
	require.Equal(t, 100*time.Millisecond, config.CallTimeout)
}
