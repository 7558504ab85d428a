package intake

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/feed"
	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/pricing"
)

// Default market-price thresholds. Discount orders price off a model
// NAV and are intrinsically noisier, so they get the wider default.
const (
	DefaultThreshold         = 0.05
	DefaultDiscountThreshold = 0.10
)

type Config struct {
	DefaultThreshold         float64 `yaml:"default_threshold"`
	DefaultDiscountThreshold float64 `yaml:"default_discount_threshold"`
}

// Normalizer validates and canonicalizes inbound order requests before
// they enter a pipeline.
type Normalizer struct {
	cfg       Config
	prices    feed.PriceSource
	forecasts feed.ForecastSource
	discount  *pricing.DiscountPricer
}

func NewNormalizer(cfg Config, prices feed.PriceSource, forecasts feed.ForecastSource) *Normalizer {
	if cfg.DefaultThreshold == 0 {
		cfg.DefaultThreshold = DefaultThreshold
	}
	if cfg.DefaultDiscountThreshold == 0 {
		cfg.DefaultDiscountThreshold = DefaultDiscountThreshold
	}
	return &Normalizer{
		cfg:       cfg,
		prices:    prices,
		forecasts: forecasts,
		discount:  pricing.NewDiscountPricer(),
	}
}

// Normalize mutates the request in place. A returned error means the
// request must be rejected before any state is created.
func (n *Normalizer) Normalize(req *model.OrderRequest) error {
	if req.Symbol == "" {
		return ErrMissingSymbol
	}
	if req.Action == model.ActionCancel {
		return nil
	}
	if req.Side.Sign() == 0 {
		return fmt.Errorf("%w: %q", ErrBadSide, req.Side)
	}
	if req.Action == model.ActionNew {
		if req.Quantity.Sign() <= 0 {
			return fmt.Errorf("%w: %s qty=%s", ErrMissingQuantity, req.Symbol, req.Quantity)
		}
		if req.RequestedPrice <= 0 {
			return fmt.Errorf("%w: %s", ErrMissingPrice, req.Symbol)
		}
	}

	if req.VenueSymbol == "" {
		if IsOptionSymbol(req.Symbol) {
			code, err := TranslateOptionSymbol(req.Symbol)
			if err != nil {
				return err
			}
			req.VenueSymbol = code
		} else {
			req.VenueSymbol = req.Symbol
		}
	}

	req.LimitPrice = n.entryPrice(req)

	if req.MarketThreshold == 0 {
		if req.Discount != nil {
			req.MarketThreshold = n.cfg.DefaultDiscountThreshold
		} else {
			req.MarketThreshold = n.cfg.DefaultThreshold
		}
	}
	if req.ThresholdField == "" {
		if req.Side.IsBuy() {
			req.ThresholdField = model.ThresholdBid
		} else {
			req.ThresholdField = model.ThresholdAsk
		}
	}

	return nil
}

// entryPrice nudges the requested price by any market movement since
// the derived-price fields were captured, so the limit reflects the
// market at submission time. A single uncapped application of the
// sweep change math, then the marketable clamp and tick rounding.
func (n *Normalizer) entryPrice(req *model.OrderRequest) float64 {
	price := req.RequestedPrice

	switch {
	case req.RefIndex != nil && req.RefIndex.RefEntryPrice > 0:
		if snap, ok := n.prices.Snapshot(req.RefIndex.RefSymbol); ok {
			if live := snap.PriceOf(req.RefIndex.RefPriceType); live > 0 {
				params := req.RefIndex
				switch params.AdjustmentType {
				case model.AdjustDelta:
					// the delta cancels out of the ratio, as in the sweep model
					price = price * (live / params.RefEntryPrice)
				case model.AdjustAbsolute:
					// dollar offset anchored to the live reference price
					price = live + params.Adjustment
				default:
					change := pricing.ScaleChange(live/params.RefEntryPrice-1, params.Adjustment, req.CapShift)
					price = price * (1 + change)
				}
			}
		} else {
			zap.S().Warnf("no snapshot for ref %s, keeping requested price on %s", req.RefIndex.RefSymbol, req.Symbol)
		}
	case req.Discount != nil:
		if f, ok := n.forecasts.Forecast(req.Symbol); ok {
			if nav, ok := f.Nav(req.Discount.NavSource); ok {
				price = n.discount.Theoretical(req.Discount, nav)
			}
		} else {
			zap.S().Warnf("no forecast for %s, keeping requested price", req.Symbol)
		}
	}

	if snap, ok := n.prices.Snapshot(req.Symbol); ok {
		return pricing.MarketableLimit(price, req.Side, snap.Quote())
	}
	return pricing.RoundTick(price, req.Side)
}
