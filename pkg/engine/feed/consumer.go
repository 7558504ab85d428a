package feed

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/model"
	kafkawrapper "github.com/cefdesk/repricer/pkg/kafka_wrapper"
)

type ConsumerConfig struct {
	Brokers       []string `yaml:"brokers"`
	GroupID       string   `yaml:"group_id"`
	QuoteTopic    string   `yaml:"quote_topic"`
	ForecastTopic string   `yaml:"forecast_topic"`
}

// Consumer subscribes the quote and forecast topics and keeps the
// boards current. The engine never blocks on it; it only reads the
// boards.
type Consumer struct {
	cfg       *ConsumerConfig
	quotes    *QuoteBoard
	forecasts *ForecastBoard
}

func NewConsumer(cfg *ConsumerConfig, quotes *QuoteBoard, forecasts *ForecastBoard) *Consumer {
	return &Consumer{cfg: cfg, quotes: quotes, forecasts: forecasts}
}

func (c *Consumer) Start(ctx context.Context) {
	go c.runQuotes(ctx)
	go c.runForecasts(ctx)
}

func (c *Consumer) runQuotes(ctx context.Context) {
	cg := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers: c.cfg.Brokers,
		GroupID: c.cfg.GroupID,
		Topic:   c.cfg.QuoteTopic,
	})
	defer cg.Close()

	err := cg.Run(ctx, func(_ context.Context, msgs []kafkawrapper.Message) error {
		for _, m := range msgs {
			var snap model.SecurityPriceSnapshot
			if err := json.Unmarshal(m.Value, &snap); err != nil {
				zap.S().Warnf("bad quote message offset=%d: %v", m.Offset, err)
				continue
			}
			c.quotes.Set(&snap)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		zap.S().Errorf("quote consumer stopped: %v", err)
	}
}

func (c *Consumer) runForecasts(ctx context.Context) {
	cg := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers: c.cfg.Brokers,
		GroupID: c.cfg.GroupID,
		Topic:   c.cfg.ForecastTopic,
	})
	defer cg.Close()

	err := cg.Run(ctx, func(_ context.Context, msgs []kafkawrapper.Message) error {
		for _, m := range msgs {
			var f model.FundForecast
			if err := json.Unmarshal(m.Value, &f); err != nil {
				zap.S().Warnf("bad forecast message offset=%d: %v", m.Offset, err)
				continue
			}
			c.forecasts.Set(&f)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		zap.S().Errorf("forecast consumer stopped: %v", err)
	}
}
