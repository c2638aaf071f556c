package main

import (
	"flag"
	"log"
	"os"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/di"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s store=%s timezone=%s", cfg.Environment, cfg.Store.Backend, cfg.Timezone)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v events=%s prewarm=%s", cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.PrewarmTopic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
