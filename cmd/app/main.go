package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"CandlePull/internal/di"
	"CandlePull/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "config file path")
	once := flag.Bool("once", false, "run a single sync pass and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

// run owns every opened resource so they are closed before main exits.
func run(configPath string, once bool) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	log.Printf("env=%s backend=%s dry_run=%t", cfg.Environment, cfg.Backend.Type, cfg.Backend.DryRun)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run(context.Background(), once)
}
