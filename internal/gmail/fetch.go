package gmail

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailai/internal/instrumentation"
	"github.com/teemow/mailai/internal/logging"
)

type fetchResult struct {
	record EmailRecord
	err    error
}

// fetchAll fetches every referenced message in full with bounded concurrency.
// Results keep the order of refs. A message that fails to load is logged and
// left out; only cancellation of ctx fails the whole batch.
func (c *Client) fetchAll(ctx context.Context, operation string, refs []*gmail.Message) ([]EmailRecord, error) {
	if len(refs) == 0 {
		return []EmailRecord{}, nil
	}

	results := make([]fetchResult, len(refs))

	var g errgroup.Group
	g.SetLimit(c.gw.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			msg, err := c.getFull(ctx, ref.Id)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].record = NewEmailRecord(msg)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("message fetch interrupted: %w", err)
	}

	logger := logging.FromContext(ctx)
	records := make([]EmailRecord, 0, len(refs))
	failed := 0
	for i, res := range results {
		if res.err != nil {
			failed++
			logger.Warn("omitting message that failed to load",
				logging.Operation(operation),
				logging.MessageID(refs[i].Id),
				logging.Err(res.err))
			continue
		}
		records = append(records, res.record)
	}
	c.gw.metrics.RecordMessageFetchFailures(ctx, operation, failed)

	return records, nil
}

func (c *Client) getFull(ctx context.Context, id string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.call(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		msg, err = c.users.Messages.Get(me, id).Format("full").Context(ctx).Do()
		return err
	}, instrumentation.ResourceID(id))
	return msg, err
}
