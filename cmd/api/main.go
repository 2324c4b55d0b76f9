package main

import (
	"context"
	"flag"
	"log"
	"os"

	"LunarPull/internal/di"
	"LunarPull/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s port=%d sql=%t", cfg.Environment, cfg.Server.Port, cfg.SQL.Enabled)

	app, cleanup, err := di.InitializeAPI(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	err = app.Run(context.Background())
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
