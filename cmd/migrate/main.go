// migrate applies or rolls back the embedded schema migrations.
package main

import (
	"flag"

	"auth-portal/internal/config"
	"auth-portal/internal/db"
	"auth-portal/internal/logger"
)

func main() {
	direction := flag.String("direction", db.DirectionUp, "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", logger.Err(err))
	}
	logger.Init(cfg.LogLevel)

	if cfg.DatabaseDSN == "" {
		logger.Fatal("DATABASE_DSN is not set", nil)
	}

	if err := db.Migrate(cfg.DatabaseDSN, *direction); err != nil {
		logger.Fatal("migration failed", logger.Err(err))
	}

	logger.Info("migrations applied", map[string]any{"direction": *direction})
}
