// Small wrapper around segmentio/kafka-go: a consumer group that
// hands batches of feed messages to a handler.
package kafkawrapper

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

type ConsumerConfig struct {
	Brokers      []string
	GroupID      string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	BackoffMin   time.Duration
	BackoffMax   time.Duration
}

type ConsumerGroup struct {
	r   *kafka.Reader
	cfg ConsumerConfig
}

func NewConsumerGroup(cfg ConsumerConfig) *ConsumerGroup {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 10 * time.Second
	}

	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.LastOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})

	return &ConsumerGroup{r: rd, cfg: cfg}
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil || cg.r == nil {
		return nil
	}
	return cg.r.Close()
}

// Run fetches messages, groups them into batches and calls handler.
// A failing batch is retried with backoff up to MaxRetries, then
// committed anyway; feed data is superseded by the next tick.
func (cg *ConsumerGroup) Run(ctx context.Context, handler func(context.Context, []Message) error) error {
	if cg == nil || cg.r == nil {
		return errors.New("consumer not initialized")
	}

	var buf []kafka.Message
	deadline := time.Now().Add(cg.cfg.BatchTimeout)
	for {
		fetchCtx, cancel := context.WithDeadline(ctx, deadline)
		m, err := cg.r.FetchMessage(fetchCtx)
		cancel()

		switch {
		case err == nil:
			buf = append(buf, m)
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			// batch window elapsed
		default:
			time.Sleep(200 * time.Millisecond)
			continue
		}

		if len(buf) >= cg.cfg.BatchSize || (len(buf) > 0 && time.Now().After(deadline)) {
			if err := cg.deliver(ctx, buf, handler); err != nil {
				return err
			}
			buf = nil
		}
		if time.Now().After(deadline) {
			deadline = time.Now().Add(cg.cfg.BatchTimeout)
		}
	}
}

func (cg *ConsumerGroup) deliver(ctx context.Context, ms []kafka.Message, handler func(context.Context, []Message) error) error {
	wrapped := make([]Message, len(ms))
	for i, m := range ms {
		wrapped[i] = Message{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Key:       m.Key,
			Value:     m.Value,
			Time:      m.Time,
		}
	}

	var attempt int
	for {
		err := handler(ctx, wrapped)
		if err == nil {
			break
		}
		attempt++
		if attempt > cg.cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(backoffDuration(cg.cfg.BackoffMin, cg.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return cg.r.CommitMessages(ctx, ms...)
}

func backoffDuration(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(min) * math.Pow(2, float64(attempt-1)))
	if d > max {
		d = max
	}
	if d > 0 {
		d = time.Duration(rand.Int63n(int64(d)))
	}
	return d
}
