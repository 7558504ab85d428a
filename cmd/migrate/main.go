package main

import (
	"flag"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cefdesk/repricer/config"
	"github.com/cefdesk/repricer/pkg/infra"
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
	if _, err := logging.Init(cfg.ServiceName+"-migrate", cfg.LogLevel); err != nil {
		panic(err)
	}

	mgTool := infra.GetMigrateTool()
	mgTool.Migrate("file://migrations/sql", cfg.EngineDB.MigrationConnURL)
}
