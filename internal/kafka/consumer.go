package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *slog.Logger
	// backoff is the first retry delay; it doubles up to maxBackoff.
	backoff time.Duration
}

const maxBackoff = 10 * time.Second

func NewConsumer(brokers []string, group string, topics []string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log, backoff: 200 * time.Millisecond}
}

// Start fetches messages and hands them to a pool of workers. An offset is
// committed only after its handler returned nil; a failing message is
// retried in place, because committing a later offset on the same partition
// would skip it. Start returns nil when ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	var wg sync.WaitGroup

	// workers
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for m := range jobs {
				if !c.process(ctx, h, m, id) {
					continue // shutting down, offset stays uncommitted
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.log.Warn("commit failed", "worker", id, "topic", m.Topic, "offset", m.Offset, "err", err)
				}
			}
		}(i)
	}
	defer wg.Wait()
	defer close(jobs)

	// dispatcher loop
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			// kecilkan noise saat shutdown
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// process runs h until it succeeds or ctx ends, and reports success.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message, worker int) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		c.log.Error("handler failed", "worker", worker, "topic", m.Topic, "offset", m.Offset, "attempt", attempt, "err", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		wait = min(wait*2, maxBackoff)
	}
}
