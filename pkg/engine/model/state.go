package model

import "time"

type OrderStatus string

const (
	StatusPending         OrderStatus = "Pending"
	StatusReplaced        OrderStatus = "Replaced"
	StatusReplaceRejected OrderStatus = "ReplaceRejected"
	StatusPartiallyFilled OrderStatus = "PartiallyFilled"
	StatusFilled          OrderStatus = "Filled"
	StatusCanceled        OrderStatus = "Canceled"
	StatusPendingCancel   OrderStatus = "PendingCancel"
	StatusRejected        OrderStatus = "Rejected"
	StatusExpired         OrderStatus = "Expired"
)

// IsEnd reports whether the order has left the live set.
func (s OrderStatus) IsEnd() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Quote is the last market snapshot used for one evaluation of an order.
type Quote struct {
	Last float64
	Bid  float64
	Ask  float64
	Time time.Time
}

func (q Quote) Crossed() bool {
	return q.Bid > 0 && q.Ask > 0 && q.Bid > q.Ask
}

// LiveOrderState is the mutable per-order record owned by the lifecycle
// tracker. Access is serialized per order key by the tracker store.
type LiveOrderState struct {
	Request *OrderRequest

	ClientOrderID string
	VenueOrderID  string
	ParentOrderID string
	PrevOrderID   string

	Status OrderStatus

	RestingPrice float64 // limit currently resting at the venue
	TargetPrice  float64 // newly computed theoretical target

	ReplaceInFlight bool

	LastQuote    Quote
	LastRefQuote Quote

	RawChange       float64
	CappedChange    float64
	ThresholdSpread float64

	CrossedCycles int

	UpdatedAt time.Time
}

// ParentOrderState tracks the replace chain of one logical order.
type ParentOrderState struct {
	ParentOrderID string
	Children      []string
	ReplaceCount  int

	TradedQty      int64
	AvgTradedPrice float64
}

// RecordFill folds one execution into the running average traded price
// across the whole replace chain.
func (p *ParentOrderState) RecordFill(qty int64, price float64) {
	if qty <= 0 {
		return
	}
	total := p.TradedQty + qty
	p.AvgTradedPrice = (p.AvgTradedPrice*float64(p.TradedQty) + price*float64(qty)) / float64(total)
	p.TradedQty = total
}

// PairOrder couples a buy and a sell leg submitted under one pair id.
// It becomes releasable only once both legs are present.
type PairOrder struct {
	PairID  string
	BuyLeg  *OrderRequest
	SellLeg *OrderRequest
}

func (p *PairOrder) Complete() bool {
	return p.BuyLeg != nil && p.SellLeg != nil
}
