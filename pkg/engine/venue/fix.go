package venue

import (
	"bytes"
	"context"
	"os"
	"sync"

	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/ordercancelreject"
	"github.com/quickfixgo/quickfix"
	filelog "github.com/quickfixgo/quickfix/log/file"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

type FIXSinkConfig struct {
	ConfigFilepath string `yaml:"config_filepath"`
}

// FIXSink routes orders to the execution venue over a FIX 4.4
// initiator session. Execution reports and cancel rejects flow back
// through the report handler.
type FIXSink struct {
	*quickfix.MessageRouter

	cfg       *FIXSinkConfig
	reports   ReportHandler
	initiator *quickfix.Initiator

	mu        sync.RWMutex
	sessionID quickfix.SessionID
	loggedOn  bool
}

func NewFIXSink(cfg *FIXSinkConfig, reports ReportHandler) *FIXSink {
	s := &FIXSink{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
		reports:       reports,
	}
	s.AddRoute(executionreport.Route(s.onExecutionReport))
	s.AddRoute(ordercancelreject.Route(s.onOrderCancelReject))
	return s
}

func (s *FIXSink) Start(ctx context.Context) error {
	cfgBytes, err := os.ReadFile(s.cfg.ConfigFilepath)
	if err != nil {
		return err
	}
	settings, err := quickfix.ParseSettings(bytes.NewReader(cfgBytes))
	if err != nil {
		return err
	}

	logFactory, err := filelog.NewLogFactory(settings)
	if err != nil {
		return err
	}
	s.initiator, err = quickfix.NewInitiator(s, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		return err
	}
	return s.initiator.Start()
}

func (s *FIXSink) Stop() {
	if s.initiator != nil {
		s.initiator.Stop()
	}
}

// Dispatch sends the batch to the venue session. Individual send
// failures are logged and skipped; the order's state is untouched and
// the next sweep re-evaluates it.
func (s *FIXSink) Dispatch(_ context.Context, reqs []*model.OrderRequest) error {
	s.mu.RLock()
	sessionID, loggedOn := s.sessionID, s.loggedOn
	s.mu.RUnlock()
	if !loggedOn {
		return ErrNotLoggedOn
	}

	for _, req := range reqs {
		msg, err := requestToMessage(req)
		if err != nil {
			zap.S().Errorw("fix message build failed", "clOrdID", req.ClientOrderID, "err", err)
			continue
		}
		if err := quickfix.SendToTarget(msg, sessionID); err != nil {
			zap.S().Errorw("fix send failed", "clOrdID", req.ClientOrderID, "err", err)
		}
	}
	return nil
}

func (s *FIXSink) onExecutionReport(msg executionreport.ExecutionReport, _ quickfix.SessionID) quickfix.MessageRejectError {
	rep, err := executionReportToVenueReport(msg)
	if err != nil {
		return err
	}
	if s.reports != nil {
		s.reports(rep)
	}
	return nil
}

func (s *FIXSink) onOrderCancelReject(msg ordercancelreject.OrderCancelReject, _ quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, err := msg.GetClOrdID()
	if err != nil {
		return err
	}
	rep := &model.VenueReport{
		ClientOrderID: clOrdID,
		Status:        model.StatusReplaceRejected,
	}
	if msg.HasText() {
		rep.Reason, _ = msg.GetText()
	}
	if s.reports != nil {
		s.reports(rep)
	}
	return nil
}

// quickfix.Application

func (s *FIXSink) OnCreate(sessionID quickfix.SessionID) {
	s.mu.Lock()
	s.sessionID = sessionID
	s.mu.Unlock()
}

func (s *FIXSink) OnLogon(sessionID quickfix.SessionID) {
	s.mu.Lock()
	s.sessionID = sessionID
	s.loggedOn = true
	s.mu.Unlock()
	zap.S().Infof("venue session logged on: %s", sessionID)
}

func (s *FIXSink) OnLogout(sessionID quickfix.SessionID) {
	s.mu.Lock()
	s.loggedOn = false
	s.mu.Unlock()
	zap.S().Warnf("venue session logged out: %s", sessionID)
}

func (s *FIXSink) ToAdmin(msg *quickfix.Message, _ quickfix.SessionID) {
	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil && msgType == "A" {
		zap.S().Debug("sending logon")
	}
}

func (s *FIXSink) ToApp(_ *quickfix.Message, _ quickfix.SessionID) error {
	return nil
}

func (s *FIXSink) FromAdmin(_ *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (s *FIXSink) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return s.Route(msg, sessionID)
}
