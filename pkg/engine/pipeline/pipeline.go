package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/events"
	"github.com/cefdesk/repricer/pkg/engine/feed"
	"github.com/cefdesk/repricer/pkg/engine/intake"
	"github.com/cefdesk/repricer/pkg/engine/lifecycle"
	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/pair"
	"github.com/cefdesk/repricer/pkg/engine/pricing"
)

// Item is one priced order handed to the terminal.
type Item struct {
	Request         *model.OrderRequest
	WithinThreshold bool
}

// Terminal is the only step that differs between the immediate-submit
// and the queue-staging paths.
type Terminal interface {
	Deliver(ctx context.Context, items []Item) error
}

// Pipeline runs intake → pricing → terminal for a batch of inbound
// requests. One pipeline type serves both submission paths; the
// terminal decides whether the batch hits the venue or the staged
// store.
type Pipeline struct {
	normalizer *intake.Normalizer
	tracker    *lifecycle.Tracker
	pairs      *pair.Coordinator
	prices     feed.PriceSource
	events     events.Sink
	terminal   Terminal
}

func New(normalizer *intake.Normalizer, tracker *lifecycle.Tracker, pairs *pair.Coordinator, prices feed.PriceSource, evs events.Sink, terminal Terminal) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		tracker:    tracker,
		pairs:      pairs,
		prices:     prices,
		events:     evs,
		terminal:   terminal,
	}
}

// Process handles a batch of inbound requests. Rejected requests are
// reported back in the joined error; accepted ones flow to the
// terminal in one delivery.
func (p *Pipeline) Process(ctx context.Context, reqs []*model.OrderRequest) error {
	var batch []Item
	var errs []error

	for _, req := range reqs {
		items, err := p.processOne(req)
		if err != nil {
			zap.S().Warnw("order rejected", "clOrdID", req.ClientOrderID, "symbol", req.Symbol, "err", err)
			errs = append(errs, err)
			continue
		}
		batch = append(batch, items...)
	}

	if len(batch) > 0 {
		if err := p.terminal.Deliver(ctx, batch); err != nil {
			zap.S().Errorw("terminal delivery failed", "count", len(batch), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) processOne(req *model.OrderRequest) ([]Item, error) {
	switch req.Action {
	case model.ActionNew:
		return p.processNew(req)
	case model.ActionUpdate:
		return p.processUpdate(req)
	case model.ActionCancel:
		return p.processCancel(req)
	}
	return nil, intake.ErrBadSide
}

func (p *Pipeline) processNew(req *model.OrderRequest) ([]Item, error) {
	if err := p.normalizer.Normalize(req); err != nil {
		return nil, err
	}

	// paired legs wait for their counterpart; released pairs come
	// back through Drain with both legs priced
	if p.pairs != nil && p.pairs.Offer(req) {
		var items []Item
		for _, pr := range p.pairs.Drain() {
			for _, legReq := range []*model.OrderRequest{pr.BuyLeg, pr.SellLeg} {
				item, err := p.admit(legReq)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
		}
		return items, nil
	}

	item, err := p.admit(req)
	if err != nil {
		return nil, err
	}
	return []Item{item}, nil
}

func (p *Pipeline) admit(req *model.OrderRequest) (Item, error) {
	st, err := p.tracker.Track(req)
	if err != nil {
		return Item{}, err
	}
	p.events.Publish(model.NewOrderEvent(model.EventNew, &st, time.Now()))
	return Item{Request: req, WithinThreshold: p.withinThreshold(req)}, nil
}

func (p *Pipeline) withinThreshold(req *model.OrderRequest) bool {
	snap, ok := p.prices.Snapshot(req.Symbol)
	if !ok {
		return false
	}
	spread := pricing.Spread(req.LimitPrice, req.ThresholdField, snap.Quote())
	return spread <= req.MarketThreshold
}

// processUpdate merges caller overrides into the tracked state and
// advances the replace chain. The merge happens inside the replace
// transaction, so a rejected update leaves the tracked request intact.
func (p *Pipeline) processUpdate(req *model.OrderRequest) ([]Item, error) {
	st, ok := p.tracker.Get(req.ClientOrderID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrOrderNotFound, req.ClientOrderID)
	}
	target := st.TargetPrice
	if req.RequestedPrice > 0 {
		target = pricing.RoundTick(req.RequestedPrice, st.Request.Side)
	}

	replaceReq, err := p.tracker.MarkReplaceWith(req.ClientOrderID, pricing.Evaluation{Target: target}, func(live *model.LiveOrderState) error {
		mergeOverrides(live.Request, req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if st, ok := p.tracker.Get(replaceReq.ClientOrderID); ok {
		p.events.Publish(model.NewOrderEvent(model.EventReplace, &st, time.Now()))
	}
	return []Item{{Request: replaceReq, WithinThreshold: p.withinThreshold(replaceReq)}}, nil
}

func (p *Pipeline) processCancel(req *model.OrderRequest) ([]Item, error) {
	cancelReq, err := p.tracker.MarkCancel(req.ClientOrderID)
	if err != nil {
		return nil, err
	}
	if st, ok := p.tracker.Get(cancelReq.ClientOrderID); ok {
		p.events.Publish(model.NewOrderEvent(model.EventCancel, &st, time.Now()))
	}
	return []Item{{Request: cancelReq}}, nil
}

// mergeOverrides folds caller-supplied fields of an Update into the
// tracked request; zero values leave the tracked value alone.
func mergeOverrides(tracked, override *model.OrderRequest) {
	if override.Quantity.Sign() > 0 {
		tracked.Quantity = override.Quantity
	}
	if override.PriceCap != 0 {
		tracked.PriceCap = override.PriceCap
	}
	if override.CapShift != "" {
		tracked.CapShift = override.CapShift
	}
	if override.MarketThreshold != 0 {
		tracked.MarketThreshold = override.MarketThreshold
	}
	if override.ThresholdField != "" {
		tracked.ThresholdField = override.ThresholdField
	}
	if override.Discount != nil {
		tracked.Discount = override.Discount
	}
	if override.RefIndex != nil {
		tracked.RefIndex = override.RefIndex
	}
	if override.AutoUpdateThreshold != 0 {
		tracked.AutoUpdateThreshold = override.AutoUpdateThreshold
	}
}
