package main

import (
	"flag"
	"log"
	"os"

	"PumpDump/internal/di"
	"PumpDump/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s cache=%s vote_policy=%s",
		cfg.Environment, cfg.Backend.Type, cfg.Cache.Type, cfg.Game.VotePolicy)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.StoresEvents() {
		log.Printf("clickhouse: schema ready db=%s table=%s", cfg.ClickHouse.Database, cfg.ClickHouse.Table)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		log.Printf("kafka: brokers=%v topic=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
