package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderAction string

const (
	ActionNew    OrderAction = "NEW"
	ActionUpdate OrderAction = "UPDATE"
	ActionCancel OrderAction = "CANCEL"
)

type OrderSide string

const (
	SideBuy       OrderSide = "BUY"
	SideSell      OrderSide = "SELL"
	SideBuyCover  OrderSide = "BUY_COVER"
	SideSellShort OrderSide = "SELL_SHORT"
)

// Sign maps the side to a signed position indicator: +1 for orders
// that add long exposure, -1 for orders that add short exposure.
func (s OrderSide) Sign() int {
	switch s {
	case SideBuy, SideBuyCover:
		return 1
	case SideSell, SideSellShort:
		return -1
	}
	return 0
}

func (s OrderSide) IsBuy() bool {
	return s.Sign() > 0
}

type RefPriceType string

const (
	RefPriceLast RefPriceType = "LAST"
	RefPriceMid  RefPriceType = "MID"
	RefPriceBid  RefPriceType = "BID"
	RefPriceAsk  RefPriceType = "ASK"
)

type AdjustmentType string

const (
	AdjustPercent  AdjustmentType = "PERCENT"
	AdjustDelta    AdjustmentType = "DELTA"
	AdjustAbsolute AdjustmentType = "ABSOLUTE"
)

// CapShift restricts in which price-move direction the adjustment
// scaling and the price cap are applied.
type CapShift string

const (
	ShiftUp   CapShift = "UP"
	ShiftDown CapShift = "DOWN"
	ShiftBoth CapShift = "BOTH"
)

type ThresholdField string

const (
	ThresholdBid ThresholdField = "BID"
	ThresholdAsk ThresholdField = "ASK"
)

type Environment string

const (
	EnvProduction Environment = "PRODUCTION"
	EnvSimulation Environment = "SIMULATION"
)

// RefIndexParams carries the reference-instrument tracking setup of an
// order whose limit follows an index or ETF.
type RefIndexParams struct {
	RefSymbol      string
	RefPriceType   RefPriceType
	Adjustment     float64
	AdjustmentType AdjustmentType
	RefEntryPrice  float64
}

// DiscountParams carries the NAV-discount tracking setup of an order
// whose limit follows a target premium/discount to estimated NAV.
type DiscountParams struct {
	DiscountTarget     float64
	DiscountAdjustment float64
	NavSource          NavSource
}

type OrderRequest struct {
	Action        OrderAction
	ClientOrderID string
	OrigOrderID   string // prior order in a replace chain, set on generated replaces

	Symbol      string
	VenueSymbol string
	Side        OrderSide
	Quantity    decimal.Decimal

	RequestedPrice float64
	LimitPrice     float64
	StopPrice      float64

	RefIndex *RefIndexParams
	Discount *DiscountParams

	// PriceCap and CapShift bound one evaluation's price adjustment.
	// Shared by reference-index and discount orders.
	PriceCap float64
	CapShift CapShift

	MarketThreshold float64
	ThresholdField  ThresholdField

	AutoUpdate          bool
	AutoUpdateThreshold float64

	Destination string
	Strategy    string
	Account     string
	Environment Environment

	PairID string

	TransactTime time.Time
}

// IsDerived reports whether the order carries derived-price fields and
// therefore participates in sweep repricing.
func (r *OrderRequest) IsDerived() bool {
	return r.RefIndex != nil || r.Discount != nil
}
