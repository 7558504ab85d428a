package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cefdesk/repricer/config"
	"github.com/cefdesk/repricer/pkg/engine"
	"github.com/cefdesk/repricer/pkg/engine/events"
	"github.com/cefdesk/repricer/pkg/engine/feed"
	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/staging"
	"github.com/cefdesk/repricer/pkg/engine/venue"
	redis_wrapper "github.com/cefdesk/repricer/pkg/infra/redis"
	"github.com/cefdesk/repricer/pkg/logging"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	if _, err := logging.Init(cfg.ServiceName, cfg.LogLevel); err != nil {
		panic(err)
	}

	go func() {
		http.ListenAndServe("localhost:6060", nil) // nolint
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	quotes := feed.NewQuoteBoard()
	forecasts := feed.NewForecastBoard()
	if cfg.Kafka != nil {
		feed.NewConsumer(cfg.Kafka, quotes, forecasts).Start(ctx)
	}

	rdb, err := redis_wrapper.InitRedis(cfg.Redis)
	if err != nil {
		zap.S().Fatalf("init redis fail: %v", err)
	}
	staged := staging.NewStore(rdb)

	var evs events.Sink = events.NopSink{}
	if cfg.Nats != nil {
		publisher, err := events.NewPublisher(cfg.Nats)
		if err != nil {
			zap.S().Fatalf("init event publisher fail: %v", err)
		}
		evs = publisher
	}

	// the report handler closes over eng, bound after the sink exists
	var eng *engine.Engine
	reports := func(rep *model.VenueReport) {
		eng.OnVenueReport(rep)
	}

	var sink venue.Sink
	if cfg.Engine.Environment == model.EnvProduction {
		fixSink := venue.NewFIXSink(cfg.Fix, reports)
		if err := fixSink.Start(ctx); err != nil {
			zap.S().Fatalf("start fix session fail: %v", err)
		}
		defer fixSink.Stop()
		sink = fixSink
	} else {
		sink = venue.NewSimSink(reports)
	}

	eng = engine.New(cfg.Engine, quotes, forecasts, staged, sink, evs)
	eng.Start(ctx)
	fmt.Println("repricer engine started. Press Ctrl+C to exit.")

	<-sigs
	fmt.Println("Shutting down...")

	eng.Stop()
	cancel()

	fmt.Println("Exited cleanly.")
}
