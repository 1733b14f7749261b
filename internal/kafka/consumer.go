package kafka

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Handler returns nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fans messages out to workers by topic partition. Each partition is
// owned by one worker, so its messages are handled and committed in offset
// order. A failing message is retried with backoff and holds back the rest of
// its partition until it succeeds or ctx ends.
type Consumer struct {
	r       reader
	workers int
	logger  *zap.SugaredLogger
	backoff func() retry.Backoff
}

func NewConsumer(brokers []string, group string, topics []string, workers int, logger *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, logger)
}

func newConsumer(r reader, workers int, logger *zap.SugaredLogger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:       r,
		workers: workers,
		logger:  logger,
		backoff: func() retry.Backoff {
			return retry.WithCappedDuration(30*time.Second, retry.NewExponential(200*time.Millisecond))
		},
	}
}

func (c *Consumer) lane(m kafka.Message) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(m.Topic))
	_, _ = h.Write([]byte(strconv.Itoa(m.Partition)))
	return int(h.Sum32() % uint32(c.workers))
}

// handle runs h until it succeeds. It gives up only when ctx is done, in
// which case the message stays uncommitted.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) error {
	attempt := 0
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		if err := h(ctx, m); err != nil {
			c.logger.Warnw("handler failed, retrying",
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if err := c.handle(ctx, h, m); err != nil {
					// ctx is done; drain without committing
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.logger.Warnw("commit failed",
						"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
				}
			}
		}(lanes[i])
	}
	stop := func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case lanes[c.lane(m)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}
