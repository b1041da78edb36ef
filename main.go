// Package main is the entry point for the kaasu expense tracker API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaasu-app/kaasu/internal/config"
	"github.com/kaasu-app/kaasu/internal/database"
	"github.com/kaasu-app/kaasu/internal/logger"
	"github.com/kaasu-app/kaasu/internal/server"
	"github.com/kaasu-app/kaasu/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("kaasu %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.SetLevel(cfg.LogLevel)

	if cfg.TelemetryEnabled {
		shutdown, err := telemetry.Setup(ctx, "kaasu", cfg.OTLPEndpoint)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Log.Error().Err(err).Msg("Telemetry shutdown failed")
			}
		}()
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if cfg.SeedCategories {
		if err := database.SeedCategories(ctx, pool); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to seed categories")
		}
	}

	logger.Log.Info().Msg("Database initialized successfully")

	srv := server.New(pool, server.Options{
		Addr:        cfg.Addr(),
		AllowOrigin: cfg.CORSOrigin,
		InitStore: func(ctx context.Context) error {
			if err := database.RunMigrations(ctx, pool); err != nil {
				return err
			}
			if cfg.SeedCategories {
				return database.SeedCategories(ctx, pool)
			}
			return nil
		},
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Server shutdown failed")
		}
		cancel()
	}()

	if err := srv.Start(); err != nil {
		logger.Log.Fatal().Err(err).Msg("HTTP server failed")
	}
}
