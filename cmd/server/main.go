package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth-portal/internal/app"
	"auth-portal/internal/config"
	"auth-portal/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", logger.Err(err))
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", logger.Err(err))
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", logger.Err(err))
		}
	}()

	logger.Info("auth-portal started", map[string]any{
		"port":     cfg.AppPort,
		"base_url": cfg.BaseURL,
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", logger.Err(err))
	}

	logger.Info("auth-portal stopped cleanly", nil)
}
