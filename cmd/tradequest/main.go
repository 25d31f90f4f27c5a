package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wnt/tradequest/internal/config"
	"github.com/wnt/tradequest/internal/database"
	"github.com/wnt/tradequest/internal/logger"
	"github.com/wnt/tradequest/internal/metrics"
	"github.com/wnt/tradequest/internal/quote"
	"github.com/wnt/tradequest/internal/services"
	"github.com/wnt/tradequest/internal/store"
	"github.com/wnt/tradequest/internal/trader"
	"github.com/wnt/tradequest/internal/watcher"
	"github.com/wnt/tradequest/internal/web"
)

func main() {
	// Parse command-line arguments
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

	// Load environment variables from the specified file
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	logg.Info().Str("db_path", cfg.DBPath).Msg("starting tradequest")

	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Seed(db, cfg.SeedBalance); err != nil {
		logg.Fatal().Err(err).Msg("failed to seed database")
	}

	st := store.New(db, logg)

	dexscreener := services.NewDexScreenerClient(cfg.DexScreenerURL)
	jupiter := services.NewJupiterClient(cfg.JupiterURL)
	helius := services.NewHeliusClient(cfg.HeliusURL, cfg.HeliusAPIKey)
	quotes := quote.NewAdapter(jupiter, helius)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watcher.New(st, dexscreener, time.Duration(cfg.RefreshIntervalMs)*time.Millisecond, cfg.RefreshMaxRPS, logg)
	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			logg.Error().Err(err).Msg("price watcher stopped")
		}
	}()

	// Metrics server on a separate port
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		logg.Info().Str("port", cfg.MetricsPort).Msg("metrics server listening")
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
			logg.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	tr := trader.New(st, w, quotes, logg)
	srv := web.New(st, tr, dexscreener, w, cfg.SeedBalance, logg)

	go func() {
		logg.Info().Str("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.Run(cfg.HTTPPort); err != nil {
			logg.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logg.Info().Msg("shutting down")
}
