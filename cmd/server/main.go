package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"moo-rewards-go/internal/api"
	"moo-rewards-go/internal/config"
	"moo-rewards-go/internal/database"
	"moo-rewards-go/internal/rewards"
	"moo-rewards-go/internal/settlement"
	"moo-rewards-go/internal/telegram"
	"moo-rewards-go/internal/web"
	"moo-rewards-go/internal/webhook"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: no .env file found: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting MOO rewards service")

	accounts, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer accounts.Close()

	rates, err := rewards.LoadTable(cfg.Rewards.TiersFile)
	if err != nil {
		zap.L().Fatal("Failed to load reward tiers", zap.Error(err))
	}

	bot, err := telegram.NewClient(cfg.Telegram.BotToken)
	if err != nil {
		zap.L().Fatal("Failed to initialize Telegram client", zap.Error(err))
	}

	svc := api.NewService(accounts, rates, bot, bot, cfg.Telegram, cfg.Rewards.ReferralBonus)
	hook := webhook.NewHandler(accounts, rates, bot, cfg.Telegram)

	runner := settlement.NewRunner(accounts, cfg.Settlement.Interval)
	runner.Start(ctx)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: web.Router(svc, hook, cfg.Telegram),
	}

	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
	runner.Stop()

	zap.L().Info("Shutdown complete")
}
