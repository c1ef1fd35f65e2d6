// Command settle runs a single settlement pass against the configured
// database. Useful for re-running a failed scheduled pass by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"moo-rewards-go/internal/config"
	"moo-rewards-go/internal/database"
	"moo-rewards-go/internal/settlement"
)

func main() {
	verbose := flag.Bool("v", false, "print each settled account")
	flag.Parse()

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

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	accounts, err := database.NewService(ctx, dbCfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer accounts.Close()

	summary, err := settlement.RunOnce(ctx, accounts)
	if err != nil {
		zap.L().Fatal("Settlement pass failed", zap.Error(err))
	}

	fmt.Printf("Settled %d accounts, moved %s (%s)\n",
		len(summary.Accounts), summary.TotalMoved.String(), summary.Duration)
	if *verbose {
		for _, settled := range summary.Accounts {
			fmt.Printf("  %-20s %s\n", settled.UserID, settled.Amount.String())
		}
	}
}
