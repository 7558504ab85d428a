package pricing

import (
	"testing"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

func TestGateInsideThreshold(t *testing.T) {
	g := NewGate()
	// resting 20.00, spread 0.03 within a 0.05 threshold
	if g.ShouldReplace(20.008, 20.00, 0.03, 0.05) {
		t.Errorf("4bps inside threshold must not replace")
	}
	if !g.ShouldReplace(20.013, 20.00, 0.03, 0.05) {
		t.Errorf("6.5bps inside threshold must replace")
	}
}

func TestGateOutsideThreshold(t *testing.T) {
	g := NewGate()
	// spread 0.08 exceeds the 0.05 threshold, hurdle widens to 50bps
	if g.ShouldReplace(20.08, 20.00, 0.08, 0.05) {
		t.Errorf("40bps outside threshold must not replace")
	}
	if !g.ShouldReplace(20.12, 20.00, 0.08, 0.05) {
		t.Errorf("60bps outside threshold must replace")
	}
}

func TestGateNoRestingPrice(t *testing.T) {
	g := NewGate()
	if g.ShouldReplace(20.00, 0, 0.01, 0.05) {
		t.Errorf("order without a resting price must not replace")
	}
}

func TestSpreadUsesThresholdField(t *testing.T) {
	quote := model.Quote{Bid: 19.90, Ask: 20.10}
	if got := Spread(20.00, model.ThresholdBid, quote); !approx(got, 0.10) {
		t.Errorf("bid spread expected 0.10, got %v", got)
	}
	if got := Spread(20.00, model.ThresholdAsk, quote); !approx(got, 0.10) {
		t.Errorf("ask spread expected 0.10, got %v", got)
	}
	if got := Spread(20.00, model.ThresholdBid, model.Quote{}); got != 0 {
		t.Errorf("missing quote side collapses spread to 0, got %v", got)
	}
}
