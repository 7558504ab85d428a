package venue

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

// SimSink is the simulation-environment sink: it acknowledges every
// request immediately instead of routing it anywhere.
type SimSink struct {
	reports ReportHandler
}

func NewSimSink(reports ReportHandler) *SimSink {
	return &SimSink{reports: reports}
}

func (s *SimSink) Dispatch(_ context.Context, reqs []*model.OrderRequest) error {
	for _, req := range reqs {
		rep := &model.VenueReport{
			ClientOrderID: req.ClientOrderID,
			VenueOrderID:  uuid.New().String(),
			TransactTime:  req.TransactTime,
		}
		switch req.Action {
		case model.ActionNew:
			rep.Status = model.StatusPending
		case model.ActionUpdate:
			rep.Status = model.StatusReplaced
		case model.ActionCancel:
			rep.Status = model.StatusCanceled
		}
		zap.S().Debugf("sim dispatch %s %s %s px=%v", req.Action, req.ClientOrderID, req.VenueSymbol, req.LimitPrice)
		if s.reports != nil {
			s.reports(rep)
		}
	}
	return nil
}
