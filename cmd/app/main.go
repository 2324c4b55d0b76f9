package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"LunarPull/internal/di"
	"LunarPull/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	once := flag.Bool("once", false, "run the pipeline once and exit, ignoring run.schedule")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s symbols=%v price_source=%s", cfg.Environment, cfg.SymbolList(), cfg.Run.PriceSource)

	// Wire DI: Initialize all dependencies
	runner, cleanup, err := di.InitializeRunner(cfg)
	if err != nil {
		log.Fatalf("pipeline initialization failed: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once || !runner.Scheduled() {
		if err := runner.RunOnce(ctx); err != nil {
			stop()
			cleanup()
			os.Exit(1)
		}
		return
	}

	// Blocks until signal
	if err := runner.Serve(ctx); err != nil {
		log.Printf("scheduler error: %v", err)
	}
}
