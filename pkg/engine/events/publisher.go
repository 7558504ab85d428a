package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

// Sink receives the engine's per-decision audit events. Publishing is
// best effort; a lost audit event never blocks order flow.
type Sink interface {
	Publish(ev *model.OrderEvent)
}

type Config struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

// Publisher writes order events to a NATS JetStream subject; the
// worker binary persists them from there.
type Publisher struct {
	js      nats.JetStreamContext
	subject string
}

func NewPublisher(cfg *Config) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return nil, err
	}
	return &Publisher{js: js, subject: cfg.Subject}, nil
}

func (p *Publisher) Publish(ev *model.OrderEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		zap.S().Errorf("marshal order event %s: %v", ev.EventID, err)
		return
	}
	if _, err := p.js.PublishAsync(p.subject, b); err != nil {
		zap.S().Errorf("publish order event %s: %v", ev.EventID, err)
	}
}

// NopSink discards events; used in tests and when auditing is off.
type NopSink struct{}

func (NopSink) Publish(*model.OrderEvent) {}
