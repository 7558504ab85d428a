package pipeline

import (
	"context"
	"time"

	"github.com/cefdesk/repricer/pkg/engine/events"
	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/staging"
	"github.com/cefdesk/repricer/pkg/engine/venue"
)

// DispatchTerminal sends the batch straight to the venue sink; the
// interactive submission path.
type DispatchTerminal struct {
	sink venue.Sink
}

func NewDispatchTerminal(sink venue.Sink) *DispatchTerminal {
	return &DispatchTerminal{sink: sink}
}

func (t *DispatchTerminal) Deliver(ctx context.Context, items []Item) error {
	reqs := make([]*model.OrderRequest, len(items))
	for i, it := range items {
		reqs[i] = it.Request
	}
	return t.sink.Dispatch(ctx, reqs)
}

// StageTerminal parks the batch in the staged store for manual batch
// release instead of dispatching.
type StageTerminal struct {
	store  *staging.Store
	events events.Sink
}

func NewStageTerminal(store *staging.Store, evs events.Sink) *StageTerminal {
	return &StageTerminal{store: store, events: evs}
}

func (t *StageTerminal) Deliver(ctx context.Context, items []Item) error {
	for _, it := range items {
		err := t.store.Stage(ctx, &staging.StagedOrder{
			Request:         it.Request,
			WithinThreshold: it.WithinThreshold,
		})
		if err != nil {
			return err
		}
		t.events.Publish(&model.OrderEvent{
			EventID:       model.NewEventID(it.Request.ClientOrderID, model.EventStaged),
			ParentOrderID: it.Request.ClientOrderID,
			ClientOrderID: it.Request.ClientOrderID,
			EventType:     model.EventStaged,
			Symbol:        it.Request.Symbol,
			Side:          it.Request.Side,
			Qty:           it.Request.Quantity.IntPart(),
			Price:         it.Request.LimitPrice,
			Timestamp:     time.Now(),
		})
	}
	return nil
}
