package feed

import (
	"sync"
	"time"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

// PriceSource is the read side of the market data feed.
type PriceSource interface {
	Snapshot(symbol string) (*model.SecurityPriceSnapshot, bool)
}

// ForecastSource is the read side of the NAV/forecast feed.
type ForecastSource interface {
	Forecast(symbol string) (*model.FundForecast, bool)
}

// QuoteBoard holds the latest per-symbol price snapshot. The feed
// consumer writes, the engine reads.
type QuoteBoard struct {
	mu        sync.RWMutex
	snapshots map[string]*model.SecurityPriceSnapshot
}

func NewQuoteBoard() *QuoteBoard {
	return &QuoteBoard{snapshots: make(map[string]*model.SecurityPriceSnapshot)}
}

func (b *QuoteBoard) Set(s *model.SecurityPriceSnapshot) {
	if s == nil || s.Symbol == "" {
		return
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	if s.Mid == 0 && s.Bid > 0 && s.Ask > 0 {
		s.Mid = (s.Bid + s.Ask) / 2
	}
	b.mu.Lock()
	b.snapshots[s.Symbol] = s
	b.mu.Unlock()
}

func (b *QuoteBoard) Snapshot(symbol string) (*model.SecurityPriceSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.snapshots[symbol]
	return s, ok
}

// ForecastBoard holds the latest per-symbol estimated NAV set.
type ForecastBoard struct {
	mu        sync.RWMutex
	forecasts map[string]*model.FundForecast
}

func NewForecastBoard() *ForecastBoard {
	return &ForecastBoard{forecasts: make(map[string]*model.FundForecast)}
}

func (b *ForecastBoard) Set(f *model.FundForecast) {
	if f == nil || f.Symbol == "" {
		return
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now()
	}
	b.mu.Lock()
	b.forecasts[f.Symbol] = f
	b.mu.Unlock()
}

func (b *ForecastBoard) Forecast(symbol string) (*model.FundForecast, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.forecasts[symbol]
	return f, ok
}
