package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cefdesk/repricer/pkg/engine"
	"github.com/cefdesk/repricer/pkg/engine/events"
	"github.com/cefdesk/repricer/pkg/engine/feed"
	"github.com/cefdesk/repricer/pkg/engine/venue"
	postgres_wrapper "github.com/cefdesk/repricer/pkg/infra/postgres"
	redis_wrapper "github.com/cefdesk/repricer/pkg/infra/redis"
)

type AppConfig struct {
	ServiceName string `yaml:"service_name"`
	LogLevel    string `yaml:"log_level"`

	Engine engine.Config `yaml:"engine"`

	EngineDB *postgres_wrapper.PostgresConfig `yaml:"engine_db"`
	Redis    *redis_wrapper.RedisConfig       `yaml:"redis"`
	Kafka    *feed.ConsumerConfig             `yaml:"kafka"`
	Nats     *events.Config                   `yaml:"nats"`
	Fix      *venue.FIXSinkConfig             `yaml:"fix"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
