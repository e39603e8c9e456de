package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/vx-labs/journal/journal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func benchConfig() *viper.Viper {
	config := viper.New()
	config.Set("streams", 2)
	config.Set("writers", 3)
	config.Set("batches", 5)
	config.Set("batch-size", 4)
	config.Set("call-timeout", time.Second)
	return config
}

func TestRunBench(t *testing.T) {
	t.Run("should append every batch without gaps", func(t *testing.T) {
		summary, reports, err := runBench(context.Background(), benchConfig(), zap.NewNop())
		require.NoError(t, err)
		require.Equal(t, 2, summary.Streams)
		require.Equal(t, 2*3*5, summary.Accepted)
		require.Equal(t, 0, summary.Rejected)
		for _, report := range reports {
			require.Equal(t, 3*5*4, report.Records)
			require.Equal(t, uint64(3*5*4), report.Highest)
			require.True(t, report.Sorted)
			require.Equal(t, 0, report.Gaps)
		}
	})
	t.Run("should reject batches holding unserializable records", func(t *testing.T) {
		config := benchConfig()
		config.Set("invalid-every", 4)
		summary, reports, err := runBench(context.Background(), config, zap.NewNop())
		require.NoError(t, err)
		require.Equal(t, 0, summary.Accepted)
		require.Equal(t, 2*3*5, summary.Rejected)
		require.Empty(t, reports)
	})
	t.Run("should hard delete streams once written", func(t *testing.T) {
		config := benchConfig()
		config.Set("delete-to", 20)
		config.Set("hard", true)
		_, reports, err := runBench(context.Background(), config, zap.NewNop())
		require.NoError(t, err)
		for _, report := range reports {
			require.Equal(t, 40, report.Records)
			require.Equal(t, uint64(60), report.Highest)
		}
	})
}

func TestInspect(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := journal.StoreLogger(context.Background(), zap.New(core))
	j := journal.New(journal.DefaultConfig(), journal.DefaultRegistry(), nil)
	defer j.Close()
	require.NoError(t, j.Append(ctx, "s1", []journal.Record{
		{StreamID: "s1", SequenceNr: 1, Payload: "a"},
		{StreamID: "s1", SequenceNr: 3, Payload: "b"},
	}))

	report, err := inspect(ctx, j, "s1")
	require.NoError(t, err)
	require.Equal(t, 2, report.Records)
	require.Equal(t, 1, report.Gaps)

	t.Run("should log with the inspected stream id", func(t *testing.T) {
		entries := logs.FilterField(zap.String("bench_stream_id", "s1")).All()
		require.Len(t, entries, 2)
		require.Equal(t, "inspecting batch", entries[0].Message)
		require.Equal(t, "stream inspected", entries[1].Message)
	})
	t.Run("should not leak fields into the caller logger", func(t *testing.T) {
		journal.L(ctx).Debug("done")
		require.Equal(t, 1, logs.FilterMessage("done").Len())
		require.Equal(t, 0, logs.FilterMessage("done").FilterField(zap.String("bench_stream_id", "s1")).Len())
	})
}

func TestConfigFrom(t *testing.T) {
	config := viper.New()
	require.False(t, configFrom(config).FullSerialization)
	require.Equal(t, 100*time.Millisecond, configFrom(config).CallTimeout)
	config.Set("full-serialization", true)
	require.True(t, configFrom(config).FullSerialization)
}

func TestParseTemplate(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, ParseTemplate(`{{ .Accepted | humanCount }}`).Execute(out, benchReport{Accepted: 12345}))
	require.Equal(t, "12,345\n", out.String())
}
