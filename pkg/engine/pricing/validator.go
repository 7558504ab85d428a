package pricing

import (
	"math"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

// Prices below this stay unrounded; penny securities need sub-cent
// precision.
const tickRoundFloor = 0.4

// roundEps absorbs binary-float noise so exact cent values are not
// pushed over a floor/ceil boundary.
const roundEps = 1e-9

// RoundTick rounds a price to the cent in the side's favor: floored
// for buys, ceiled for sells. Prices under the floor threshold pass
// through untouched.
func RoundTick(price float64, side model.OrderSide) float64 {
	if price < tickRoundFloor {
		return price
	}
	if side.IsBuy() {
		return math.Floor(price*100+roundEps) / 100
	}
	return math.Ceil(price*100-roundEps) / 100
}

// MarketableLimit clamps a theoretical target into a final limit price
// given the traded security's own quote: a buy never crosses the
// offer, a sell never crosses the bid, and the result is tick-rounded
// and non-negative.
func MarketableLimit(target float64, side model.OrderSide, quote model.Quote) float64 {
	price := target
	if side.IsBuy() {
		if quote.Ask > 0 && price > quote.Ask {
			price = quote.Ask
		}
	} else {
		if quote.Bid > 0 && price < quote.Bid {
			price = quote.Bid
		}
	}
	if price < 0 {
		price = 0
	}
	return RoundTick(price, side)
}
