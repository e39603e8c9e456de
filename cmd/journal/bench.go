package main

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/ptypes/wrappers"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/journal/journal"
	"github.com/vx-labs/journal/journal/stats"
	"github.com/vx-labs/journal/stream"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const benchTemplate = `{{ "streams" | bold }}: {{ .Streams | humanCount }}
{{ "accepted" | bold }}: {{ .Accepted | humanCount }} batches
{{ "rejected" | bold }}: {{ .Rejected | humanCount }} batches
{{ "timeouts" | bold }}: {{ .Timeouts | humanCount }} batches
{{ "elapsed" | bold }}: {{ .Elapsed | humanDuration }}
{{ "throughput" | bold }}: {{ .Throughput | humanRate }}`

type benchReport struct {
	Streams    int
	Accepted   int
	Rejected   int
	Timeouts   int
	Elapsed    time.Duration
	Throughput float64
}

type streamReport struct {
	ID      string
	Records int
	Deleted int
	Highest uint64
	Sorted  bool
	Gaps    int
}

type counters struct {
	accepted int64
	rejected int64
	timeouts int64
}

func streamNames(count int) []string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	out := make([]string, count)
	for idx := range out {
		out[idx] = fmt.Sprintf("bench-%s", ulid.MustNew(ulid.Timestamp(time.Now()), entropy))
	}
	return out
}

func payloadFor(seq uint64, invalidEvery int) interface{} {
	if invalidEvery > 0 && seq%uint64(invalidEvery) == 0 {
		return struct{}{}
	}
	return &wrappers.StringValue{Value: fmt.Sprintf("record-%d", seq)}
}

// writer appends its batches to streamID. Sequence numbers are interleaved
// between writers so that concurrent writers never collide.
func writer(ctx context.Context, j *journal.Journal, streamID string, id, writers, batches, batchSize, invalidEvery int, c *counters) error {
	for b := 0; b < batches; b++ {
		first := uint64((b*writers+id)*batchSize) + 1
		records := make([]journal.Record, batchSize)
		for idx := range records {
			seq := first + uint64(idx)
			records[idx] = journal.Record{StreamID: streamID, SequenceNr: seq, Payload: payloadFor(seq, invalidEvery)}
		}
		err := j.Append(ctx, streamID, records)
		switch {
		case err == nil:
			atomic.AddInt64(&c.accepted, 1)
		case journal.IsRejection(err):
			atomic.AddInt64(&c.rejected, 1)
		case errors.Cause(err) == journal.ErrTimeout:
			atomic.AddInt64(&c.timeouts, 1)
		default:
			return err
		}
	}
	return nil
}

func inspect(ctx context.Context, j *journal.Journal, streamID string) (streamReport, error) {
	ctx = journal.AddFields(ctx, zap.String("bench_stream_id", streamID))
	report := streamReport{ID: streamID, Sorted: true}
	var previous uint64
	err := stream.NewConsumer(stream.WithMaxBatchSize(500)).Consume(ctx, j, streamID, func(ctx context.Context, batch stream.Batch) error {
		journal.L(ctx).Debug("inspecting batch",
			zap.Uint64("bench_first_sequence_nr", batch.FirstSequenceNr), zap.Int("bench_batch_size", len(batch.Records)))
		for _, record := range batch.Records {
			if report.Records > 0 {
				if record.SequenceNr <= previous {
					report.Sorted = false
				} else if record.SequenceNr != previous+1 {
					report.Gaps++
				}
			}
			if record.Deleted {
				report.Deleted++
			}
			previous = record.SequenceNr
			report.Records++
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	report.Highest, err = j.HighestSequenceNr(ctx, streamID)
	if err != nil {
		return report, err
	}
	journal.L(ctx).Debug("stream inspected", zap.Int("bench_record_count", report.Records), zap.Int("bench_gap_count", report.Gaps))
	return report, nil
}

func runBench(ctx context.Context, config *viper.Viper, logger *zap.Logger) (benchReport, []streamReport, error) {
	j := journal.New(configFrom(config), journal.DefaultRegistry(), logger)
	defer j.Close()

	streamCount := config.GetInt("streams")
	writers := config.GetInt("writers")
	batches := config.GetInt("batches")
	batchSize := config.GetInt("batch-size")
	invalidEvery := config.GetInt("invalid-every")
	names := streamNames(streamCount)

	c := &counters{}
	start := time.Now()
	g, groupCtx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		for w := 0; w < writers; w++ {
			w := w
			g.Go(func() error {
				return writer(groupCtx, j, name, w, writers, batches, batchSize, invalidEvery, c)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return benchReport{}, nil, err
	}
	elapsed := time.Since(start)
	logger.Debug("writers stopped", zap.Duration("bench_elapsed", elapsed))

	if deleteTo := config.GetUint64("delete-to"); deleteTo > 0 {
		for _, name := range names {
			if err := j.DeleteTo(ctx, name, deleteTo, config.GetBool("hard")); err != nil {
				return benchReport{}, nil, err
			}
		}
	}

	streams, err := j.ListStreams(ctx)
	if err != nil {
		return benchReport{}, nil, err
	}
	sort.Strings(streams)
	reports := make([]streamReport, 0, len(streams))
	for _, id := range streams {
		report, err := inspect(ctx, j, id)
		if err != nil {
			return benchReport{}, nil, err
		}
		reports = append(reports, report)
	}
	accepted := int(atomic.LoadInt64(&c.accepted))
	return benchReport{
		Streams:    len(streams),
		Accepted:   accepted,
		Rejected:   int(atomic.LoadInt64(&c.rejected)),
		Timeouts:   int(atomic.LoadInt64(&c.timeouts)),
		Elapsed:    elapsed,
		Throughput: float64(accepted*batchSize) / elapsed.Seconds(),
	}, reports, nil
}

func Bench(config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run concurrent writers against an in-memory journal and report the resulting streams",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := journal.StoreLogger(context.Background(), getLogger(config))
			logger := journal.L(ctx)
			defer logger.Sync()
			if port := config.GetInt("metrics-port"); port > 0 {
				go func() {
					if err := stats.ListenAndServe(port); err != nil {
						logger.Error("metrics server crashed", zap.Error(err))
					}
				}()
				logger.Info("started metrics server", zap.Int("metrics_port", port))
			}
			summary, reports, err := runBench(ctx, config, logger)
			if err != nil {
				logger.Fatal("benchmark failed", zap.Error(err))
			}
			table := getTable([]string{"Stream", "Records", "Deleted", "Highest", "Sorted", "Gaps"}, cmd.OutOrStdout())
			for _, report := range reports {
				table.Append([]string{
					report.ID,
					fmt.Sprintf("%d", report.Records),
					fmt.Sprintf("%d", report.Deleted),
					fmt.Sprintf("%d", report.Highest),
					fmt.Sprintf("%v", report.Sorted),
					fmt.Sprintf("%d", report.Gaps),
				})
			}
			table.Render()
			err = ParseTemplate(config.GetString("format")).Execute(cmd.OutOrStdout(), summary)
			if err != nil {
				logger.Error("failed to render summary", zap.Error(err))
			}
		},
	}
	cmd.Flags().Int("streams", 4, "Number of distinct streams.")
	cmd.Flags().Int("writers", 4, "Number of concurrent writers per stream.")
	cmd.Flags().Int("batches", 100, "Number of batches appended by each writer.")
	cmd.Flags().Int("batch-size", 10, "Number of records per batch.")
	cmd.Flags().Int("invalid-every", 0, "Make every Nth record unserializable, rejecting its batch.")
	cmd.Flags().Uint64("delete-to", 0, "Delete every stream up to this sequence number once writers are done.")
	cmd.Flags().Bool("hard", false, "Remove records instead of flagging them when deleting.")
	cmd.Flags().Int("metrics-port", 0, "Start Prometheus HTTP metrics server on this port.")
	cmd.Flags().String("format", benchTemplate, "Format the summary using Golang template format.")
	return cmd
}
