package pricing

import "github.com/cefdesk/repricer/pkg/engine/model"

// DefaultPriceCap bounds one evaluation's fractional price change when
// the order does not configure its own cap.
const DefaultPriceCap = 0.03

// ScaleChange applies beta/delta scaling to a raw fractional change.
// An adjustment of zero passes the raw change through. With a
// directional shift the scaling only applies when the change moves in
// the configured direction.
func ScaleChange(raw, adjustment float64, shift model.CapShift) float64 {
	adj := adjustment
	if adj == 0 {
		adj = 1
	}
	switch shift {
	case model.ShiftUp:
		if raw > 0 {
			return raw * adj
		}
	case model.ShiftDown:
		if raw < 0 {
			return raw * adj
		}
	default:
		return raw * adj
	}
	return raw
}

// ClampChange caps a fractional change at the configured cap, but only
// in the configured shift direction. A shift of Up leaves downward
// moves unclamped and vice versa.
func ClampChange(change, cap float64, shift model.CapShift) float64 {
	if cap <= 0 {
		cap = DefaultPriceCap
	}
	switch shift {
	case model.ShiftUp:
		if change > cap {
			return cap
		}
	case model.ShiftDown:
		if change < -cap {
			return -cap
		}
	default:
		if change > cap {
			return cap
		}
		if change < -cap {
			return -cap
		}
	}
	return change
}
