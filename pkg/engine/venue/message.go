package venue

import (
	"errors"
	"fmt"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/fix44/ordercancelreplacerequest"
	"github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

var ErrNotLoggedOn = errors.New("venue session not logged on")

var sideMapping = map[model.OrderSide]enum.Side{
	model.SideBuy:       enum.Side_BUY,
	model.SideBuyCover:  enum.Side_BUY,
	model.SideSell:      enum.Side_SELL,
	model.SideSellShort: enum.Side_SELL_SHORT,
}

var statusMapping = map[enum.OrdStatus]model.OrderStatus{
	enum.OrdStatus_NEW:              model.StatusPending,
	enum.OrdStatus_PENDING_NEW:      model.StatusPending,
	enum.OrdStatus_PARTIALLY_FILLED: model.StatusPartiallyFilled,
	enum.OrdStatus_FILLED:           model.StatusFilled,
	enum.OrdStatus_CANCELED:         model.StatusCanceled,
	enum.OrdStatus_PENDING_CANCEL:   model.StatusPendingCancel,
	enum.OrdStatus_REPLACED:         model.StatusReplaced,
	enum.OrdStatus_REJECTED:         model.StatusRejected,
	enum.OrdStatus_EXPIRED:          model.StatusExpired,
}

func requestToMessage(req *model.OrderRequest) (quickfix.Messagable, error) {
	side, ok := sideMapping[req.Side]
	if !ok {
		return nil, fmt.Errorf("unmapped side %q", req.Side)
	}
	transactTime := req.TransactTime
	if transactTime.IsZero() {
		transactTime = time.Now()
	}

	switch req.Action {
	case model.ActionNew:
		msg := newordersingle.New(
			field.NewClOrdID(req.ClientOrderID),
			field.NewSide(side),
			field.NewTransactTime(transactTime),
			field.NewOrdType(enum.OrdType_LIMIT),
		)
		msg.SetSymbol(req.VenueSymbol)
		msg.SetAccount(req.Account)
		msg.SetOrderQty(req.Quantity, 0)
		msg.SetPrice(decimal.NewFromFloat(req.LimitPrice), 4)
		msg.SetTimeInForce(enum.TimeInForce_DAY)
		if req.Destination != "" {
			msg.SetExDestination(enum.ExDestination(req.Destination))
		}
		return msg, nil

	case model.ActionUpdate:
		msg := ordercancelreplacerequest.New(
			field.NewOrigClOrdID(req.OrigOrderID),
			field.NewClOrdID(req.ClientOrderID),
			field.NewSide(side),
			field.NewTransactTime(transactTime),
			field.NewOrdType(enum.OrdType_LIMIT),
		)
		msg.SetSymbol(req.VenueSymbol)
		msg.SetAccount(req.Account)
		msg.SetOrderQty(req.Quantity, 0)
		msg.SetPrice(decimal.NewFromFloat(req.LimitPrice), 4)
		return msg, nil

	case model.ActionCancel:
		origID := req.OrigOrderID
		if origID == "" {
			origID = req.ClientOrderID
		}
		msg := ordercancelrequest.New(
			field.NewOrigClOrdID(origID),
			field.NewClOrdID(req.ClientOrderID),
			field.NewSide(side),
			field.NewTransactTime(transactTime),
		)
		msg.SetSymbol(req.VenueSymbol)
		msg.SetOrderQty(req.Quantity, 0)
		return msg, nil
	}
	return nil, fmt.Errorf("unmapped action %q", req.Action)
}

func executionReportToVenueReport(msg executionreport.ExecutionReport) (*model.VenueReport, quickfix.MessageRejectError) {
	rep := &model.VenueReport{}

	if msg.HasClOrdID() {
		rep.ClientOrderID, _ = msg.GetClOrdID()
	}
	if msg.HasOrderID() {
		rep.VenueOrderID, _ = msg.GetOrderID()
	}

	ordStatus, err := msg.GetOrdStatus()
	if err != nil {
		return nil, err
	}
	status, ok := statusMapping[ordStatus]
	if !ok {
		status = model.StatusPending
	}
	rep.Status = status

	if msg.HasLastQty() {
		if qty, err := msg.GetLastQty(); err == nil {
			rep.FilledQty = qty.IntPart()
		}
	}
	if msg.HasLastPx() {
		if px, err := msg.GetLastPx(); err == nil {
			rep.FillPrice, _ = px.Float64()
		}
	}
	if msg.HasText() {
		rep.Reason, _ = msg.GetText()
	}
	if msg.HasTransactTime() {
		rep.TransactTime, _ = msg.GetTransactTime()
	}
	return rep, nil
}
