package model

import "time"

// SecurityPriceSnapshot is the per-symbol view refreshed by the market
// data feed. The engine only ever reads it.
type SecurityPriceSnapshot struct {
	Symbol      string
	Last        float64
	Bid         float64
	Ask         float64
	Mid         float64
	DailyReturn float64
	UpdatedAt   time.Time
}

func (s *SecurityPriceSnapshot) Quote() Quote {
	return Quote{Last: s.Last, Bid: s.Bid, Ask: s.Ask, Time: s.UpdatedAt}
}

// PriceOf resolves one of the snapshot's prices by reference price type.
func (s *SecurityPriceSnapshot) PriceOf(pt RefPriceType) float64 {
	switch pt {
	case RefPriceBid:
		return s.Bid
	case RefPriceAsk:
		return s.Ask
	case RefPriceMid:
		return s.Mid
	default:
		return s.Last
	}
}

// NavSource selects which estimated-NAV variant a discount order prices
// against.
type NavSource string

const (
	NavBaseline      NavSource = "BASELINE"
	NavHoldings      NavSource = "HOLDINGS"
	NavEtfRegression NavSource = "ETF_REGRESSION"
	NavProxy         NavSource = "PROXY"
	NavAltProxy      NavSource = "ALT_PROXY"
	NavPublished     NavSource = "PUBLISHED_ACCRUED"
)

// FundForecast is the per-symbol estimated NAV set published by the
// forecast feed.
type FundForecast struct {
	Symbol string

	Baseline        float64
	Holdings        float64
	EtfRegression   float64
	Proxy           float64
	AltProxy        float64
	PublishedNav    float64
	AccruedInterest float64

	UpdatedAt time.Time
}

// Nav resolves the estimated NAV for the given source. Returns false
// when the variant is not populated.
func (f *FundForecast) Nav(src NavSource) (float64, bool) {
	var nav float64
	switch src {
	case NavHoldings:
		nav = f.Holdings
	case NavEtfRegression:
		nav = f.EtfRegression
	case NavProxy:
		nav = f.Proxy
	case NavAltProxy:
		nav = f.AltProxy
	case NavPublished:
		nav = f.PublishedNav + f.AccruedInterest
	default:
		nav = f.Baseline
	}
	if nav <= 0 {
		return 0, false
	}
	return nav, true
}
