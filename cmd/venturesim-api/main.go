package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venturesim/internal/api"
	"venturesim/internal/config"
	"venturesim/internal/db"
	"venturesim/internal/game"
	"venturesim/internal/notify"
	"venturesim/internal/pricing"
	"venturesim/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.NewPostgres(pool)

	var resolver game.ProbabilityResolver = pricing.DefaultCurve()
	if cfg.PricingURL != "" {
		resolver = pricing.NewClient(cfg.PricingURL, cfg.PricingAPIKey, cfg.PricingTimeout)
	}

	var notifier game.Notifier
	if cfg.DiscordToken != "" && cfg.DiscordChannel != "" {
		notifier, err = notify.NewDiscord(cfg.DiscordToken, cfg.DiscordChannel, logger)
		if err != nil {
			logger.Error("discord init failed", "err", err)
			os.Exit(1)
		}
	}

	engine := game.NewEngine(st, resolver, notifier, logger)
	engine.SetPricingTimeout(cfg.PricingTimeout)

	server := api.New(cfg, logger, st, engine)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("venturesim api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
