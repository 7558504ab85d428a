package engine

import (
	"context"
	"time"

	"github.com/joripage/go_util/pkg/shardqueue"
	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/events"
	"github.com/cefdesk/repricer/pkg/engine/feed"
	"github.com/cefdesk/repricer/pkg/engine/intake"
	"github.com/cefdesk/repricer/pkg/engine/lifecycle"
	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/pair"
	"github.com/cefdesk/repricer/pkg/engine/pipeline"
	"github.com/cefdesk/repricer/pkg/engine/staging"
	"github.com/cefdesk/repricer/pkg/engine/sweep"
	"github.com/cefdesk/repricer/pkg/engine/venue"
)

const (
	inboundShards    = 16
	inboundQueueSize = 100_000
)

type Config struct {
	Environment model.Environment `yaml:"environment"`
	Intake      intake.Config     `yaml:"intake"`
	Lifecycle   lifecycle.Config  `yaml:"lifecycle"`
	Sweep       sweep.Config      `yaml:"sweep"`
}

// Engine ties the intake pipelines, the lifecycle tracker and the
// sweeps together behind one facade. The two pipelines share every
// stage except the terminal: Submit dispatches, Stage parks.
type Engine struct {
	cfg Config

	tracker   *lifecycle.Tracker
	quotes    *feed.QuoteBoard
	forecasts *feed.ForecastBoard
	staged    *staging.Store
	events    events.Sink
	sink      venue.Sink

	dispatchPipe *pipeline.Pipeline
	stagePipe    *pipeline.Pipeline
	sweeps       *sweep.Scheduler
	inbound      *shardqueue.Shardqueue
}

func New(cfg Config, quotes *feed.QuoteBoard, forecasts *feed.ForecastBoard, staged *staging.Store, sink venue.Sink, evs events.Sink) *Engine {
	if evs == nil {
		evs = events.NopSink{}
	}
	if cfg.Lifecycle.Environment == "" {
		cfg.Lifecycle.Environment = cfg.Environment
	}

	e := &Engine{
		cfg:       cfg,
		tracker:   lifecycle.NewTracker(cfg.Lifecycle),
		quotes:    quotes,
		forecasts: forecasts,
		staged:    staged,
		events:    evs,
		sink:      sink,
	}

	normalizer := intake.NewNormalizer(cfg.Intake, quotes, forecasts)
	pairs := pair.NewCoordinator()
	e.dispatchPipe = pipeline.New(normalizer, e.tracker, pairs, quotes, evs,
		pipeline.NewDispatchTerminal(sink))
	e.stagePipe = pipeline.New(normalizer, e.tracker, pairs, quotes, evs,
		pipeline.NewStageTerminal(staged, evs))
	e.sweeps = sweep.NewScheduler(cfg.Sweep, e.tracker, quotes, forecasts, sink, evs)

	e.inbound = shardqueue.NewShardQueue(inboundShards, inboundQueueSize)
	e.inbound.Start(func(msg interface{}) error {
		req, ok := msg.(*model.OrderRequest)
		if !ok {
			return nil
		}
		if err := e.Submit(context.Background(), req); err != nil {
			zap.S().Warnw("async submit rejected", "clOrdID", req.ClientOrderID, "err", err)
		}
		return nil
	})

	return e
}

// Start launches the periodic sweeps. The inbound queue is already
// running from construction.
func (e *Engine) Start(ctx context.Context) {
	e.sweeps.Start(ctx)
	zap.S().Infow("engine started", "environment", e.cfg.Environment)
}

func (e *Engine) Stop() {
	e.sweeps.Stop()
}

// Tracker exposes the live-order store for read paths (worker, admin).
func (e *Engine) Tracker() *lifecycle.Tracker {
	return e.tracker
}

// Submit runs a batch through intake and dispatches it to the venue.
func (e *Engine) Submit(ctx context.Context, reqs ...*model.OrderRequest) error {
	return e.dispatchPipe.Process(ctx, reqs)
}

// SubmitAsync queues one request on the inbound shard queue. Requests
// sharing a client order id are processed in arrival order.
func (e *Engine) SubmitAsync(req *model.OrderRequest) {
	key := req.ClientOrderID
	if key == "" {
		key = req.Symbol
	}
	e.inbound.Shard(key, req)
}

// Stage runs a batch through intake but parks the priced orders in the
// staged store instead of dispatching.
func (e *Engine) Stage(ctx context.Context, reqs ...*model.OrderRequest) error {
	if e.staged == nil {
		return ErrStagingDisabled
	}
	return e.stagePipe.Process(ctx, reqs)
}

// ReleaseStaged dispatches staged orders as one batch and removes them
// from the store. With no ids it releases everything staged.
func (e *Engine) ReleaseStaged(ctx context.Context, clientOrderIDs ...string) error {
	if e.staged == nil {
		return ErrStagingDisabled
	}
	var staged []*staging.StagedOrder
	if len(clientOrderIDs) == 0 {
		all, err := e.staged.List(ctx)
		if err != nil {
			return err
		}
		staged = all
	} else {
		for _, id := range clientOrderIDs {
			so, err := e.staged.Get(ctx, id)
			if err != nil {
				return err
			}
			staged = append(staged, so)
		}
	}
	if len(staged) == 0 {
		return nil
	}

	reqs := make([]*model.OrderRequest, len(staged))
	ids := make([]string, len(staged))
	for i, so := range staged {
		reqs[i] = so.Request
		ids[i] = so.Request.ClientOrderID
	}

	if err := e.sink.Dispatch(ctx, reqs); err != nil {
		return err
	}
	if err := e.staged.Remove(ctx, ids...); err != nil {
		return err
	}

	for _, id := range ids {
		if st, ok := e.tracker.Get(id); ok {
			e.events.Publish(model.NewOrderEvent(model.EventReleased, &st, time.Now()))
		}
	}
	zap.S().Infow("staged batch released", "count", len(ids))
	return nil
}

// OnVenueReport folds an execution report or cancel reject back into
// the live-order store. Terminal statuses retire the replace chain.
func (e *Engine) OnVenueReport(rep *model.VenueReport) {
	if err := e.tracker.ApplyReport(rep); err != nil {
		zap.S().Warnw("venue report on unknown order", "clOrdID", rep.ClientOrderID, "status", rep.Status, "err", err)
		return
	}
	if rep.Status == model.StatusRejected {
		if st, ok := e.tracker.Get(rep.ClientOrderID); ok {
			e.events.Publish(model.NewOrderEvent(model.EventReject, &st, time.Now()))
		}
	}
	if rep.Status.IsEnd() {
		e.tracker.Remove(rep.ClientOrderID)
	}
}
