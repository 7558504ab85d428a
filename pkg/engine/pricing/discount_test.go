package pricing

import (
	"errors"
	"testing"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

func discountOrderState(target, restingTarget float64, src model.NavSource) *model.LiveOrderState {
	return &model.LiveOrderState{
		Request: &model.OrderRequest{
			Symbol:   "CEF1",
			Side:     model.SideBuy,
			PriceCap: 0.03,
			CapShift: model.ShiftBoth,
			Discount: &model.DiscountParams{
				DiscountTarget: target,
				NavSource:      src,
			},
		},
		ClientOrderID: "ORD-1",
		Status:        model.StatusPending,
		RestingPrice:  restingTarget,
		TargetPrice:   restingTarget,
	}
}

func TestDiscountTheoreticalPrice(t *testing.T) {
	p := NewDiscountPricer()
	st := discountOrderState(-0.05, 19.50, model.NavBaseline)

	ev, err := p.Evaluate(st, &model.FundForecast{Baseline: 20.00}, wideQuote)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// (1 - 0.05) * 20 = 19.00; change from 19.50 is about -2.56%, inside the cap
	if !approx(ev.RawChange, 19.0/19.5-1) {
		t.Errorf("expected raw change %v, got %v", 19.0/19.5-1, ev.RawChange)
	}
	if ev.CappedChange != ev.RawChange {
		t.Errorf("change inside cap must pass unclamped, got %v", ev.CappedChange)
	}
	if ev.Target != 19.00 {
		t.Errorf("expected final target 19.00, got %v", ev.Target)
	}
}

func TestDiscountLargeMoveClamped(t *testing.T) {
	p := NewDiscountPricer()
	st := discountOrderState(-0.05, 18.00, model.NavBaseline)

	ev, err := p.Evaluate(st, &model.FundForecast{Baseline: 20.00}, wideQuote)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// theoretical 19.00 is ~5.6% above the 18.00 anchor, capped at 3%
	if !approx(ev.CappedChange, 0.03) {
		t.Errorf("expected capped change 0.03, got %v", ev.CappedChange)
	}
	if ev.Target != 18.54 {
		t.Errorf("expected target 18.54, got %v", ev.Target)
	}
}

func TestDiscountNavSourceSelection(t *testing.T) {
	p := NewDiscountPricer()
	forecast := &model.FundForecast{
		Baseline:        20.00,
		Holdings:        20.40,
		PublishedNav:    19.80,
		AccruedInterest: 0.20,
	}

	st := discountOrderState(0, 20.00, model.NavHoldings)
	ev, err := p.Evaluate(st, forecast, wideQuote)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Target != 20.40 {
		t.Errorf("holdings nav expected 20.40, got %v", ev.Target)
	}

	st = discountOrderState(0, 20.00, model.NavPublished)
	ev, err = p.Evaluate(st, forecast, wideQuote)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Target != 20.00 {
		t.Errorf("published+accrued nav expected 20.00, got %v", ev.Target)
	}
}

func TestDiscountUnresolvedNavSkips(t *testing.T) {
	p := NewDiscountPricer()
	st := discountOrderState(-0.05, 19.50, model.NavProxy)

	if _, err := p.Evaluate(st, &model.FundForecast{Baseline: 20.00}, wideQuote); !errors.Is(err, ErrMissingNav) {
		t.Errorf("expected ErrMissingNav, got %v", err)
	}
}
