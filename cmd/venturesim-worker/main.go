package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

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

	cfg, err := config.LoadWorkerFromEnv()
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

	if cfg.RunOnce {
		advanceDue(ctx, logger, st, engine, cfg.WeekLength)
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.CheckEvery)
	defer ticker.Stop()

	logger.Info("worker started", "check_every", cfg.CheckEvery.String(), "week_length", cfg.WeekLength.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			advanceDue(ctx, logger, st, engine, cfg.WeekLength)
		}
	}
}

// advanceDue settles every active session whose week deadline passed. A
// losing race against a manual advance is expected and not an error.
func advanceDue(ctx context.Context, logger *slog.Logger, st game.AdminStore, engine *game.Engine, weekLength time.Duration) {
	due, err := st.DueSessions(ctx, weekLength)
	if err != nil {
		logger.Error("due session scan failed", "err", err)
		return
	}
	for _, gameID := range due {
		summary, err := engine.AdvanceWeek(ctx, gameID)
		if err != nil {
			if errors.Is(err, game.ErrAdvanceInProgress) {
				logger.Info("advance already running", "game_id", gameID)
				continue
			}
			logger.Error("timed advance failed", "game_id", gameID, "err", err)
			continue
		}
		logger.Info("timed advance complete",
			"game_id", gameID, "new_week", summary.NewWeek,
			"teams_processed", summary.TeamsProcessed, "completed", summary.Completed)
	}
}
