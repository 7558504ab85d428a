package pricing

import (
	"github.com/cefdesk/repricer/pkg/engine/model"
)

// Evaluation is the outcome of one pricer run on one order.
type Evaluation struct {
	Target       float64
	RawChange    float64
	CappedChange float64
}

// ReferencePricer computes replacement targets for reference-index
// orders using the order's configured adjustment model.
type ReferencePricer struct{}

func NewReferencePricer() *ReferencePricer {
	return &ReferencePricer{}
}

// Evaluate prices one order against the reference instrument's live
// snapshot, then clamps the result into a marketable limit against the
// traded security's own quote.
func (p *ReferencePricer) Evaluate(st *model.LiveOrderState, ref *model.SecurityPriceSnapshot, own model.Quote) (Evaluation, error) {
	req := st.Request
	if req == nil || req.RefIndex == nil {
		return Evaluation{}, ErrMissingEntryPrice
	}
	params := req.RefIndex

	live := ref.PriceOf(params.RefPriceType)
	if live <= 0 {
		return Evaluation{}, ErrMissingRefPrice
	}
	entry := params.RefEntryPrice
	if entry <= 0 {
		return Evaluation{}, ErrMissingEntryPrice
	}

	anchor := st.TargetPrice
	if anchor <= 0 {
		anchor = st.RestingPrice
	}
	if anchor <= 0 {
		return Evaluation{}, ErrMissingAnchor
	}

	var ev Evaluation
	switch params.AdjustmentType {
	case model.AdjustDelta:
		// The delta cancels out of the ratio. Kept as written pending
		// product clarification.
		delta := params.Adjustment
		if delta == 0 {
			delta = 1
		}
		ev.RawChange = (live*delta)/(entry*delta) - 1
		ev.CappedChange = ClampChange(ev.RawChange, req.PriceCap, req.CapShift)
		ev.Target = anchor * (1 + ev.CappedChange)
	case model.AdjustAbsolute:
		// Anchored to the live reference price, not the prior target.
		offset := params.Adjustment
		ev.RawChange = (live+offset)/(entry+offset) - 1
		ev.CappedChange = ClampChange(ev.RawChange, req.PriceCap, req.CapShift)
		ev.Target = live + offset
	default: // percent / beta
		ev.RawChange = live/entry - 1
		scaled := ScaleChange(ev.RawChange, params.Adjustment, req.CapShift)
		ev.CappedChange = ClampChange(scaled, req.PriceCap, req.CapShift)
		ev.Target = anchor * (1 + ev.CappedChange)
	}

	ev.Target = MarketableLimit(ev.Target, req.Side, own)
	return ev, nil
}
