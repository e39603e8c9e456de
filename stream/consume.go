package stream

import (
	"context"
)

func consume(ctx context.Context, r Replayer, streamID string, opts ConsumerOpts, processor Processor) error {
	for _, middleware := range opts.Middleware {
		processor = middleware(processor, opts)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	poller := newPoller(ctx, r, streamID, opts)
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-poller.Ready():
			if !ok {
				return poller.Error()
			}
			err := processor(ctx, batch)
			if err != nil {
				return err
			}
		}
	}
}
