package pricing

import (
	"github.com/cefdesk/repricer/pkg/engine/model"
)

// DiscountPricer computes replacement targets for NAV-discount orders.
type DiscountPricer struct{}

func NewDiscountPricer() *DiscountPricer {
	return &DiscountPricer{}
}

// Theoretical returns the uncapped discount-model price for a given
// NAV. Shared with the intake catch-up repricing.
func (p *DiscountPricer) Theoretical(params *model.DiscountParams, nav float64) float64 {
	return (1 + params.DiscountTarget + params.DiscountAdjustment) * nav
}

// Evaluate prices one order against the resolved estimated NAV. The
// cap/shift policy and prior-target anchoring match the percent
// reference model.
func (p *DiscountPricer) Evaluate(st *model.LiveOrderState, forecast *model.FundForecast, own model.Quote) (Evaluation, error) {
	req := st.Request
	if req == nil || req.Discount == nil {
		return Evaluation{}, ErrMissingNav
	}
	params := req.Discount

	nav, ok := forecast.Nav(params.NavSource)
	if !ok {
		return Evaluation{}, ErrMissingNav
	}

	anchor := st.TargetPrice
	if anchor <= 0 {
		anchor = st.RestingPrice
	}
	if anchor <= 0 {
		return Evaluation{}, ErrMissingAnchor
	}

	var ev Evaluation
	theoretical := p.Theoretical(params, nav)
	ev.RawChange = theoretical/anchor - 1
	ev.CappedChange = ClampChange(ev.RawChange, req.PriceCap, req.CapShift)
	ev.Target = anchor * (1 + ev.CappedChange)

	ev.Target = MarketableLimit(ev.Target, req.Side, own)
	return ev, nil
}
