package sweep

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cefdesk/repricer/pkg/engine/events"
	"github.com/cefdesk/repricer/pkg/engine/feed"
	"github.com/cefdesk/repricer/pkg/engine/lifecycle"
	"github.com/cefdesk/repricer/pkg/engine/model"
)

type captureSink struct {
	mu      sync.Mutex
	batches [][]*model.OrderRequest
}

func (c *captureSink) Dispatch(_ context.Context, reqs []*model.OrderRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, reqs)
	return nil
}

func (c *captureSink) all() []*model.OrderRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*model.OrderRequest
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

type fixture struct {
	tracker   *lifecycle.Tracker
	quotes    *feed.QuoteBoard
	forecasts *feed.ForecastBoard
	sink      *captureSink
	sched     *Scheduler
}

func newFixture(t *testing.T, cfg lifecycle.Config) *fixture {
	t.Helper()
	f := &fixture{
		tracker:   lifecycle.NewTracker(cfg),
		quotes:    feed.NewQuoteBoard(),
		forecasts: feed.NewForecastBoard(),
		sink:      &captureSink{},
	}
	f.sched = NewScheduler(Config{Workers: 4}, f.tracker, f.quotes, f.forecasts, f.sink, events.NopSink{})
	return f
}

func (f *fixture) track(t *testing.T, req *model.OrderRequest) {
	t.Helper()
	if _, err := f.tracker.Track(req); err != nil {
		t.Fatalf("track %s: %v", req.ClientOrderID, err)
	}
}

func refOrder(id string, limit float64) *model.OrderRequest {
	return &model.OrderRequest{
		Action:        model.ActionNew,
		ClientOrderID: id,
		Symbol:        "CEF1",
		Side:          model.SideBuy,
		Quantity:      decimal.NewFromInt(100),
		LimitPrice:    limit,
		RefIndex: &model.RefIndexParams{
			RefSymbol:      "IWM",
			RefPriceType:   model.RefPriceLast,
			AdjustmentType: model.AdjustPercent,
			Adjustment:     1,
			RefEntryPrice:  200,
		},
		MarketThreshold: 0.05,
		ThresholdField:  model.ThresholdBid,
		AutoUpdate:      true,
	}
}

func TestSweepReferenceGeneratesReplace(t *testing.T) {
	f := newFixture(t, lifecycle.Config{})
	f.track(t, refOrder("O1", 20.00))

	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "IWM", Last: 202, Bid: 201.9, Ask: 202.1})
	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "CEF1", Last: 20.01, Bid: 19.99, Ask: 30})

	f.sched.SweepReference(context.Background())

	reqs := f.sink.all()
	if len(reqs) != 1 {
		t.Fatalf("dispatched %d requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Action != model.ActionUpdate {
		t.Errorf("action = %s, want UPDATE", req.Action)
	}
	if req.ClientOrderID != "O1-R1" || req.OrigOrderID != "O1" {
		t.Errorf("chain ids = %s/%s, want O1-R1/O1", req.ClientOrderID, req.OrigOrderID)
	}
	if math.Abs(req.LimitPrice-20.20) > 1e-9 {
		t.Errorf("limit = %v, want 20.20", req.LimitPrice)
	}

	st, ok := f.tracker.Get("O1-R1")
	if !ok {
		t.Fatal("child id not resolvable")
	}
	if !st.ReplaceInFlight {
		t.Error("replace not marked in flight")
	}
	if math.Abs(st.RestingPrice-20.00) > 1e-9 {
		t.Errorf("resting moved to %v before venue ack", st.RestingPrice)
	}
}

func TestSweepReferenceHoldsInsideGate(t *testing.T) {
	f := newFixture(t, lifecycle.Config{})
	f.track(t, refOrder("O1", 20.00))

	// reference unchanged from entry: target equals resting
	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "IWM", Last: 200, Bid: 199.9, Ask: 200.1})
	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "CEF1", Last: 20.01, Bid: 19.99, Ask: 30})

	f.sched.SweepReference(context.Background())

	if got := len(f.sink.all()); got != 0 {
		t.Fatalf("dispatched %d requests, want 0", got)
	}
}

func TestSweepReferenceSkipsMissingQuote(t *testing.T) {
	f := newFixture(t, lifecycle.Config{})
	f.track(t, refOrder("O1", 20.00))

	bad := refOrder("O2", 20.00)
	bad.RefIndex.RefSymbol = "MISSING"
	f.track(t, bad)

	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "IWM", Last: 202, Bid: 201.9, Ask: 202.1})
	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "CEF1", Last: 20.01, Bid: 19.99, Ask: 30})

	f.sched.SweepReference(context.Background())

	reqs := f.sink.all()
	if len(reqs) != 1 {
		t.Fatalf("dispatched %d requests, want 1", len(reqs))
	}
	if reqs[0].OrigOrderID != "O1" {
		t.Errorf("replaced %s, want O1", reqs[0].OrigOrderID)
	}
}

func TestSweepReplaceInFlightBlocksNextTick(t *testing.T) {
	f := newFixture(t, lifecycle.Config{})
	f.track(t, refOrder("O1", 20.00))

	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "IWM", Last: 202, Bid: 201.9, Ask: 202.1})
	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "CEF1", Last: 20.01, Bid: 19.99, Ask: 30})

	f.sched.SweepReference(context.Background())
	f.sched.SweepReference(context.Background())

	if got := len(f.sink.all()); got != 1 {
		t.Fatalf("dispatched %d requests across two ticks, want 1", got)
	}

	// venue confirms; a bigger move now fires the next replace
	if err := f.tracker.ApplyReport(&model.VenueReport{ClientOrderID: "O1-R1", Status: model.StatusReplaced}); err != nil {
		t.Fatalf("apply report: %v", err)
	}
	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "IWM", Last: 204, Bid: 203.9, Ask: 204.1})
	f.sched.SweepReference(context.Background())

	reqs := f.sink.all()
	if len(reqs) != 2 {
		t.Fatalf("dispatched %d requests, want 2", len(reqs))
	}
	if reqs[1].ClientOrderID != "O1-R2" {
		t.Errorf("second replace id = %s, want O1-R2", reqs[1].ClientOrderID)
	}
}

func TestSweepCrossedMarketEscalatesToCancel(t *testing.T) {
	f := newFixture(t, lifecycle.Config{CrossedCycleLimit: 3})
	f.track(t, refOrder("O1", 20.00))

	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "IWM", Last: 202, Bid: 202.5, Ask: 202.0})
	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "CEF1", Last: 20.01, Bid: 19.99, Ask: 30})

	f.sched.SweepReference(context.Background())
	f.sched.SweepReference(context.Background())
	if got := len(f.sink.all()); got != 0 {
		t.Fatalf("dispatched %d requests before limit, want 0", got)
	}

	f.sched.SweepReference(context.Background())
	reqs := f.sink.all()
	if len(reqs) != 1 {
		t.Fatalf("dispatched %d requests at limit, want 1", len(reqs))
	}
	if reqs[0].Action != model.ActionCancel {
		t.Errorf("action = %s, want CANCEL", reqs[0].Action)
	}
	st, _ := f.tracker.Get("O1")
	if st.Status != model.StatusPendingCancel {
		t.Errorf("status = %s, want PENDING_CANCEL", st.Status)
	}

	// already pending cancel; further crossed ticks stay quiet
	f.sched.SweepReference(context.Background())
	if got := len(f.sink.all()); got != 1 {
		t.Fatalf("dispatched %d requests after cancel, want 1", got)
	}
}

func TestSweepDiscountGeneratesReplace(t *testing.T) {
	f := newFixture(t, lifecycle.Config{})
	f.track(t, &model.OrderRequest{
		Action:        model.ActionNew,
		ClientOrderID: "D1",
		Symbol:        "FUND",
		Side:          model.SideBuy,
		Quantity:      decimal.NewFromInt(100),
		LimitPrice:    19.50,
		Discount: &model.DiscountParams{
			DiscountTarget: -0.05,
			NavSource:      model.NavBaseline,
		},
		MarketThreshold: 0.10,
		ThresholdField:  model.ThresholdBid,
		AutoUpdate:      true,
	})

	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "FUND", Last: 19.48, Bid: 19.45, Ask: 19.55})
	f.forecasts.Set(&model.FundForecast{Symbol: "FUND", Baseline: 20})

	f.sched.SweepDiscount(context.Background())

	reqs := f.sink.all()
	if len(reqs) != 1 {
		t.Fatalf("dispatched %d requests, want 1", len(reqs))
	}
	if math.Abs(reqs[0].LimitPrice-19.00) > 1e-9 {
		t.Errorf("limit = %v, want 19.00", reqs[0].LimitPrice)
	}
}

func TestSweepDiscountSkipsMissingForecast(t *testing.T) {
	f := newFixture(t, lifecycle.Config{})
	f.track(t, &model.OrderRequest{
		Action:        model.ActionNew,
		ClientOrderID: "D1",
		Symbol:        "FUND",
		Side:          model.SideBuy,
		Quantity:      decimal.NewFromInt(100),
		LimitPrice:    19.50,
		Discount: &model.DiscountParams{
			DiscountTarget: -0.05,
			NavSource:      model.NavHoldings,
		},
		MarketThreshold: 0.10,
		ThresholdField:  model.ThresholdBid,
		AutoUpdate:      true,
	})

	f.quotes.Set(&model.SecurityPriceSnapshot{Symbol: "FUND", Last: 19.48, Bid: 19.45, Ask: 19.55})

	f.sched.SweepDiscount(context.Background())

	if got := len(f.sink.all()); got != 0 {
		t.Fatalf("dispatched %d requests, want 0", got)
	}
}
