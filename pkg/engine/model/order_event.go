package model

import (
	"fmt"
	"time"
)

type OrderEventType string

const (
	EventNew      OrderEventType = "New"
	EventReplace  OrderEventType = "Replace"
	EventCancel   OrderEventType = "Cancel"
	EventReject   OrderEventType = "Reject"
	EventStaged   OrderEventType = "Staged"
	EventReleased OrderEventType = "Released"
)

// OrderEvent is the audit record published for every decision the
// engine makes on an order chain. The worker persists these.
type OrderEvent struct {
	EventID       string
	ParentOrderID string
	ClientOrderID string
	PrevOrderID   string
	EventType     OrderEventType
	Symbol        string
	Side          OrderSide
	Qty           int64
	Price         float64
	RawChange     float64
	CappedChange  float64
	Timestamp     time.Time
}

func NewOrderEvent(typ OrderEventType, st *LiveOrderState, ts time.Time) *OrderEvent {
	ev := &OrderEvent{
		EventID:       NewEventID(st.ClientOrderID, typ),
		ParentOrderID: st.ParentOrderID,
		ClientOrderID: st.ClientOrderID,
		PrevOrderID:   st.PrevOrderID,
		EventType:     typ,
		RawChange:     st.RawChange,
		CappedChange:  st.CappedChange,
		Price:         st.TargetPrice,
		Timestamp:     ts,
	}
	if st.Request != nil {
		ev.Symbol = st.Request.Symbol
		ev.Side = st.Request.Side
		ev.Qty = st.Request.Quantity.IntPart()
	}
	return ev
}

func NewEventID(clientOrderID string, typ OrderEventType) string {
	return fmt.Sprintf("%s-%s", clientOrderID, typ)
}

func (OrderEvent) TableName() string {
	return "order_events"
}
