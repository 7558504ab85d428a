package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cefdesk/repricer/pkg/engine/events"
	"github.com/cefdesk/repricer/pkg/engine/feed"
	"github.com/cefdesk/repricer/pkg/engine/intake"
	"github.com/cefdesk/repricer/pkg/engine/lifecycle"
	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/pair"
)

type captureTerminal struct {
	items []Item
}

func (c *captureTerminal) Deliver(_ context.Context, items []Item) error {
	c.items = append(c.items, items...)
	return nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *captureTerminal, *lifecycle.Tracker) {
	t.Helper()
	quotes := feed.NewQuoteBoard()
	quotes.Set(&model.SecurityPriceSnapshot{Symbol: "CEF1", Last: 20.01, Bid: 19.99, Ask: 30})

	tracker := lifecycle.NewTracker(lifecycle.Config{})
	term := &captureTerminal{}
	p := New(
		intake.NewNormalizer(intake.Config{}, quotes, feed.NewForecastBoard()),
		tracker,
		pair.NewCoordinator(),
		quotes,
		events.NopSink{},
		term,
	)
	return p, term, tracker
}

func newOrder(id string, side model.OrderSide, qty float64, px float64) *model.OrderRequest {
	return &model.OrderRequest{
		Action:         model.ActionNew,
		ClientOrderID:  id,
		Symbol:         "CEF1",
		Side:           side,
		Quantity:       decimal.NewFromFloat(qty),
		RequestedPrice: px,
	}
}

func TestPipelineDeliversNewOrder(t *testing.T) {
	p, term, tracker := newTestPipeline(t)

	if err := p.Process(context.Background(), []*model.OrderRequest{newOrder("O1", model.SideBuy, 100, 20.00)}); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(term.items) != 1 {
		t.Fatalf("delivered %d items, want 1", len(term.items))
	}
	it := term.items[0]
	if math.Abs(it.Request.LimitPrice-20.00) > 1e-9 {
		t.Errorf("limit = %v, want 20.00", it.Request.LimitPrice)
	}
	// bid 19.99 vs limit 20.00 is inside the 0.05 default threshold
	if !it.WithinThreshold {
		t.Error("order not flagged within threshold")
	}
	if _, ok := tracker.Get("O1"); !ok {
		t.Error("order not tracked")
	}
}

func TestPipelineRejectsBadOrderKeepsRest(t *testing.T) {
	p, term, _ := newTestPipeline(t)

	bad := newOrder("O1", model.SideBuy, 0, 20.00)
	good := newOrder("O2", model.SideBuy, 100, 20.00)

	err := p.Process(context.Background(), []*model.OrderRequest{bad, good})
	if err == nil {
		t.Fatal("expected rejection error for zero quantity")
	}
	if len(term.items) != 1 || term.items[0].Request.ClientOrderID != "O2" {
		t.Fatalf("delivered %+v, want only O2", term.items)
	}
}

func TestPipelineHoldsPairUntilComplete(t *testing.T) {
	p, term, _ := newTestPipeline(t)

	buy := newOrder("B1", model.SideBuy, 100.4, 20.00)
	buy.PairID = "P1"
	if err := p.Process(context.Background(), []*model.OrderRequest{buy}); err != nil {
		t.Fatalf("process buy leg: %v", err)
	}
	if len(term.items) != 0 {
		t.Fatalf("delivered %d items with one leg, want 0", len(term.items))
	}

	sell := newOrder("S1", model.SideSell, 100.6, 20.10)
	sell.PairID = "P1"
	if err := p.Process(context.Background(), []*model.OrderRequest{sell}); err != nil {
		t.Fatalf("process sell leg: %v", err)
	}

	if len(term.items) != 2 {
		t.Fatalf("delivered %d items after pair completion, want 2", len(term.items))
	}
	for _, it := range term.items {
		if !it.Request.Quantity.Equal(it.Request.Quantity.Round(0)) {
			t.Errorf("pair leg %s quantity %s not whole shares", it.Request.ClientOrderID, it.Request.Quantity)
		}
	}
}

func TestPipelineUpdateAdvancesChain(t *testing.T) {
	p, term, tracker := newTestPipeline(t)

	if err := p.Process(context.Background(), []*model.OrderRequest{newOrder("O1", model.SideBuy, 100, 20.00)}); err != nil {
		t.Fatalf("process new: %v", err)
	}
	term.items = nil

	update := &model.OrderRequest{
		Action:         model.ActionUpdate,
		ClientOrderID:  "O1",
		Symbol:         "CEF1",
		RequestedPrice: 20.50,
		Quantity:       decimal.NewFromInt(150),
	}
	if err := p.Process(context.Background(), []*model.OrderRequest{update}); err != nil {
		t.Fatalf("process update: %v", err)
	}

	if len(term.items) != 1 {
		t.Fatalf("delivered %d items, want 1", len(term.items))
	}
	req := term.items[0].Request
	if req.Action != model.ActionUpdate || req.ClientOrderID != "O1-R1" {
		t.Errorf("replace request = %s %s, want UPDATE O1-R1", req.Action, req.ClientOrderID)
	}
	if math.Abs(req.LimitPrice-20.50) > 1e-9 {
		t.Errorf("limit = %v, want 20.50", req.LimitPrice)
	}

	st, ok := tracker.Get("O1-R1")
	if !ok {
		t.Fatal("child id not tracked")
	}
	if !st.Request.Quantity.Equal(decimal.NewFromInt(150)) {
		t.Errorf("quantity = %s, want 150", st.Request.Quantity)
	}
}

// An update rejected because a replace is already in flight must not
// leave any of its overrides behind on the tracked request.
func TestPipelineRejectedUpdateLeavesNoPartialState(t *testing.T) {
	p, term, tracker := newTestPipeline(t)

	if err := p.Process(context.Background(), []*model.OrderRequest{newOrder("O1", model.SideBuy, 100, 20.00)}); err != nil {
		t.Fatalf("process new: %v", err)
	}
	before, _ := tracker.Get("O1")
	wantThreshold := before.Request.MarketThreshold
	wantCap := before.Request.PriceCap

	first := &model.OrderRequest{
		Action:         model.ActionUpdate,
		ClientOrderID:  "O1",
		Symbol:         "CEF1",
		RequestedPrice: 20.50,
	}
	if err := p.Process(context.Background(), []*model.OrderRequest{first}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	term.items = nil

	// no venue ack yet, so the second update must be rejected whole
	second := &model.OrderRequest{
		Action:          model.ActionUpdate,
		ClientOrderID:   "O1",
		Symbol:          "CEF1",
		RequestedPrice:  21.00,
		MarketThreshold: 0.50,
		PriceCap:        0.09,
	}
	if err := p.Process(context.Background(), []*model.OrderRequest{second}); err == nil {
		t.Fatal("expected rejection with a replace in flight")
	}
	if len(term.items) != 0 {
		t.Fatalf("delivered %d items from a rejected update", len(term.items))
	}

	after, _ := tracker.Get("O1")
	if after.Request.MarketThreshold != wantThreshold {
		t.Errorf("threshold override leaked: %v", after.Request.MarketThreshold)
	}
	if after.Request.PriceCap != wantCap {
		t.Errorf("price cap override leaked: %v", after.Request.PriceCap)
	}
}

func TestPipelineCancel(t *testing.T) {
	p, term, tracker := newTestPipeline(t)

	if err := p.Process(context.Background(), []*model.OrderRequest{newOrder("O1", model.SideBuy, 100, 20.00)}); err != nil {
		t.Fatalf("process new: %v", err)
	}
	term.items = nil

	cancel := &model.OrderRequest{Action: model.ActionCancel, ClientOrderID: "O1", Symbol: "CEF1"}
	if err := p.Process(context.Background(), []*model.OrderRequest{cancel}); err != nil {
		t.Fatalf("process cancel: %v", err)
	}

	if len(term.items) != 1 || term.items[0].Request.Action != model.ActionCancel {
		t.Fatalf("delivered %+v, want one cancel", term.items)
	}
	st, _ := tracker.Get("O1")
	if st.Status != model.StatusPendingCancel {
		t.Errorf("status = %s, want PendingCancel", st.Status)
	}
}
