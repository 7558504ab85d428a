package pricing

import (
	"math"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

// Basis-point hurdles for authorizing a replace. A wider hurdle
// applies when the order sits outside its market-price threshold, so
// micro-movements near the touch do not churn replaces while larger
// justified moves still pass.
const (
	InsideThresholdBps  = 5
	OutsideThresholdBps = 50
)

// Gate is the two-tier replace-eligibility check.
type Gate struct {
	insideBps  float64
	outsideBps float64
}

func NewGate() *Gate {
	return &Gate{insideBps: InsideThresholdBps, outsideBps: OutsideThresholdBps}
}

// Spread measures how far the order's resting limit sits from its
// configured threshold-reference side of the market.
func Spread(resting float64, field model.ThresholdField, quote model.Quote) float64 {
	var refPrice float64
	switch field {
	case model.ThresholdAsk:
		refPrice = quote.Ask
	default:
		refPrice = quote.Bid
	}
	if refPrice <= 0 {
		return 0
	}
	return math.Abs(refPrice - resting)
}

// ShouldReplace authorizes a replace when the computed target differs
// enough from the resting limit: >50bps outside the market threshold,
// >5bps inside it.
func (g *Gate) ShouldReplace(target, resting, spread, threshold float64) bool {
	if resting <= 0 || target <= 0 {
		return false
	}
	changeBps := math.Abs(target/resting-1) * 10000
	if spread > threshold {
		return changeBps > g.outsideBps
	}
	return changeBps > g.insideBps
}
