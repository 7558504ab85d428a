package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/repo"
)

// Worker drains the order-event stream into the audit store. It runs
// as its own binary so event persistence never sits on the pricing
// path.
type Worker struct {
	orderEvent repo.IOrderEvent
}

func NewWorker(r repo.IRepo) *Worker {
	return &Worker{
		orderEvent: r.OrderEvent(),
	}
}

func (w *Worker) StartConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	sub, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(64, nats.MaxWait(2*time.Second))
		if err != nil {
			if err == nats.ErrTimeout {
				continue
			}
			zap.S().Warnf("fetch order events: %v", err)
			continue
		}

		for _, msg := range msgs {
			var ev model.OrderEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				zap.S().Warnf("drop malformed order event: %v", err)
				_ = msg.Ack()
				continue
			}
			if err := w.handleEvent(ctx, &ev); err != nil {
				// no ack, redelivered on the next fetch
				zap.S().Errorf("persist order event %s: %v", ev.EventID, err)
				continue
			}
			_ = msg.Ack()
		}
	}
}

func (w *Worker) handleEvent(ctx context.Context, ev *model.OrderEvent) error {
	_, err := w.orderEvent.Create(ctx, ev)
	return err
}
