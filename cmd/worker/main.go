package main

import (
	"context"
	"flag"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cefdesk/repricer/config"
	"github.com/cefdesk/repricer/pkg/engine/repo"
	"github.com/cefdesk/repricer/pkg/engine/worker"
	postgres_wrapper "github.com/cefdesk/repricer/pkg/infra/postgres"
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
	if _, err := logging.Init(cfg.ServiceName+"-worker", cfg.LogLevel); err != nil {
		panic(err)
	}

	ctx := context.Background()

	nc, err := nats.Connect(cfg.Nats.URL)
	if err != nil {
		zap.S().Fatalf("connect nats fail: %v", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		zap.S().Fatalf("init jetstream fail: %v", err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     cfg.Nats.Stream,
		Subjects: []string{cfg.Nats.Subject},
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		zap.S().Fatalf("ensure stream fail: %v", err)
	}

	db, err := postgres_wrapper.InitPostgres(cfg.EngineDB)
	if err != nil {
		zap.S().Fatalf("init db fail: %v", err)
	}

	sqlRepo := repo.NewRepo(db)

	w := worker.NewWorker(sqlRepo)
	if err := w.StartConsumer(ctx, js, cfg.Nats.Subject, "order_event_worker"); err != nil {
		zap.S().Fatalf("consumer stopped: %v", err)
	}
}
