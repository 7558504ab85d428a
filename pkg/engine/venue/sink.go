package venue

import (
	"context"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

// Sink is the order-dispatch boundary. Dispatch is fire-and-forget
// with at-most-once-per-call semantics; outcomes arrive out of band as
// venue reports. Retry/backoff on venue failures belongs to the
// adapter, not the engine.
type Sink interface {
	Dispatch(ctx context.Context, reqs []*model.OrderRequest) error
}

// ReportHandler consumes asynchronous venue status callbacks.
type ReportHandler func(*model.VenueReport)
