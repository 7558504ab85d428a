package sweep

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/events"
	"github.com/cefdesk/repricer/pkg/engine/feed"
	"github.com/cefdesk/repricer/pkg/engine/lifecycle"
	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/pricing"
	"github.com/cefdesk/repricer/pkg/engine/venue"
)

type Config struct {
	RefInterval      time.Duration `yaml:"ref_interval"`
	DiscountInterval time.Duration `yaml:"discount_interval"`
	Workers          int           `yaml:"workers"`
}

// Scheduler drives the two periodic sweeps: reference-index orders and
// discount orders. Each tick re-evaluates every eligible live order
// and dispatches all resulting replace/cancel requests as one batch.
type Scheduler struct {
	cfg Config

	tracker    *lifecycle.Tracker
	quotes     feed.PriceSource
	forecasts  feed.ForecastSource
	refPricer  *pricing.ReferencePricer
	discPricer *pricing.DiscountPricer
	gate       *pricing.Gate
	sink       venue.Sink
	events     events.Sink

	stopCh chan struct{}
}

func NewScheduler(cfg Config, tracker *lifecycle.Tracker, quotes feed.PriceSource, forecasts feed.ForecastSource, sink venue.Sink, evs events.Sink) *Scheduler {
	if cfg.RefInterval == 0 {
		cfg.RefInterval = 2 * time.Second
	}
	if cfg.DiscountInterval == 0 {
		cfg.DiscountInterval = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &Scheduler{
		cfg:        cfg,
		tracker:    tracker,
		quotes:     quotes,
		forecasts:  forecasts,
		refPricer:  pricing.NewReferencePricer(),
		discPricer: pricing.NewDiscountPricer(),
		gate:       pricing.NewGate(),
		sink:       sink,
		events:     evs,
		stopCh:     make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.runLoop(ctx, s.cfg.RefInterval, "reference", s.SweepReference)
	go s.runLoop(ctx, s.cfg.DiscountInterval, "discount", s.SweepDiscount)
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runLoop(ctx context.Context, interval time.Duration, name string, sweepFn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepFn(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SweepReference re-evaluates every live reference-index order.
func (s *Scheduler) SweepReference(ctx context.Context) {
	s.sweep(ctx, "reference", func(st *model.LiveOrderState) bool {
		return st.Request != nil && st.Request.RefIndex != nil && st.Request.AutoUpdate
	}, s.evaluateReference)
}

// SweepDiscount re-evaluates every live discount-target order.
func (s *Scheduler) SweepDiscount(ctx context.Context) {
	s.sweep(ctx, "discount", func(st *model.LiveOrderState) bool {
		return st.Request != nil && st.Request.Discount != nil && st.Request.RefIndex == nil && st.Request.AutoUpdate
	}, s.evaluateDiscount)
}

// sweep fans the eligible set over the worker pool and dispatches the
// combined batch. A panic or error on one order never aborts the rest.
func (s *Scheduler) sweep(ctx context.Context, name string, filter func(*model.LiveOrderState) bool, eval func(model.LiveOrderState) *model.OrderRequest) {
	start := time.Now()
	orders := s.tracker.List(filter)

	var mu sync.Mutex
	var batch []*model.OrderRequest
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.cfg.Workers)

	for _, st := range orders {
		wg.Add(1)
		sem <- struct{}{}
		go func(st model.LiveOrderState) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					zap.S().Errorw("sweep evaluation panic",
						"sweep", name, "clOrdID", st.ClientOrderID, "symbol", st.Request.Symbol, "panic", r)
				}
			}()
			if req := eval(st); req != nil {
				mu.Lock()
				batch = append(batch, req)
				mu.Unlock()
			}
		}(st)
	}
	wg.Wait()

	if len(batch) > 0 {
		if err := s.sink.Dispatch(ctx, batch); err != nil {
			zap.S().Errorw("sweep dispatch failed", "sweep", name, "count", len(batch), "err", err)
		}
	}

	zap.S().Infow("sweep complete",
		"sweep", name,
		"processed", len(orders),
		"dispatched", len(batch),
		"elapsed", time.Since(start))
}

func (s *Scheduler) evaluateReference(st model.LiveOrderState) *model.OrderRequest {
	id := st.ClientOrderID

	ownSnap, ok := s.quotes.Snapshot(st.Request.Symbol)
	if !ok {
		zap.S().Debugf("no quote for %s, skipping %s", st.Request.Symbol, id)
		return nil
	}
	refSnap, ok := s.quotes.Snapshot(st.Request.RefIndex.RefSymbol)
	if !ok {
		zap.S().Debugf("no quote for ref %s, skipping %s", st.Request.RefIndex.RefSymbol, id)
		return nil
	}

	if cancelReq := s.handleCrossed(id, refSnap.Quote()); cancelReq != nil {
		return cancelReq
	}
	if refSnap.Quote().Crossed() {
		return nil
	}

	if !s.tracker.CheckForAutoUpdate(&st) {
		return nil
	}

	ev, err := s.refPricer.Evaluate(&st, refSnap, ownSnap.Quote())
	if err != nil {
		zap.S().Warnw("reference pricing skipped", "clOrdID", id, "symbol", st.Request.Symbol, "err", err)
		return nil
	}

	return s.maybeReplace(id, &st, ev, ownSnap.Quote(), refSnap.Quote())
}

func (s *Scheduler) evaluateDiscount(st model.LiveOrderState) *model.OrderRequest {
	id := st.ClientOrderID

	ownSnap, ok := s.quotes.Snapshot(st.Request.Symbol)
	if !ok {
		zap.S().Debugf("no quote for %s, skipping %s", st.Request.Symbol, id)
		return nil
	}

	if cancelReq := s.handleCrossed(id, ownSnap.Quote()); cancelReq != nil {
		return cancelReq
	}
	if ownSnap.Quote().Crossed() {
		return nil
	}

	if !s.tracker.CheckForAutoUpdate(&st) {
		return nil
	}

	forecast, ok := s.forecasts.Forecast(st.Request.Symbol)
	if !ok {
		zap.S().Warnf("no forecast for %s, skipping %s", st.Request.Symbol, id)
		return nil
	}

	ev, err := s.discPricer.Evaluate(&st, forecast, ownSnap.Quote())
	if err != nil {
		zap.S().Warnw("discount pricing skipped", "clOrdID", id, "symbol", st.Request.Symbol, "err", err)
		return nil
	}

	return s.maybeReplace(id, &st, ev, ownSnap.Quote(), model.Quote{})
}

// handleCrossed maintains the consecutive crossed-market counter and
// returns the single cancel request once the limit is hit.
func (s *Scheduler) handleCrossed(id string, q model.Quote) *model.OrderRequest {
	if !s.tracker.RecordCrossed(id, q.Crossed()) {
		return nil
	}
	cancelReq, err := s.tracker.MarkCancel(id)
	if err != nil {
		zap.S().Warnw("crossed-market cancel failed", "clOrdID", id, "err", err)
		return nil
	}
	zap.S().Infow("crossed market escalated to cancel", "clOrdID", id)
	if st, ok := s.tracker.Get(id); ok {
		s.events.Publish(model.NewOrderEvent(model.EventCancel, &st, time.Now()))
	}
	return cancelReq
}

func (s *Scheduler) maybeReplace(id string, st *model.LiveOrderState, ev pricing.Evaluation, own, ref model.Quote) *model.OrderRequest {
	spread := pricing.Spread(st.RestingPrice, st.Request.ThresholdField, own)

	// persist the evaluation context even when no replace fires
	_ = s.tracker.Update(id, func(live *model.LiveOrderState) error {
		live.LastQuote = own
		live.LastRefQuote = ref
		live.ThresholdSpread = spread
		return nil
	})

	if !s.gate.ShouldReplace(ev.Target, st.RestingPrice, spread, st.Request.MarketThreshold) {
		return nil
	}

	replaceReq, err := s.tracker.MarkReplace(id, ev)
	if err != nil {
		// raced with an inbound update or venue report; next tick
		// re-evaluates
		zap.S().Debugf("replace on %s skipped: %v", id, err)
		return nil
	}
	if live, ok := s.tracker.Get(replaceReq.ClientOrderID); ok {
		s.events.Publish(model.NewOrderEvent(model.EventReplace, &live, time.Now()))
	}
	return replaceReq
}
