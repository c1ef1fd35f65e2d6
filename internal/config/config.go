package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"moo-rewards-go/internal/models"

	"github.com/shopspring/decimal"
)

// Load reads configuration from the environment. Required Telegram values
// are validated here so a deployment mistake fails at startup instead of
// degrading into silent webhook no-ops.
func Load() (*models.Config, error) {
	database, err := LoadDatabase()
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	settleInterval, err := getEnvDuration("SETTLEMENT_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	botToken := getEnvString("TELEGRAM_BOT_TOKEN", "")
	if botToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	rewardChatID, err := getEnvInt64("REWARD_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	if rewardChatID == 0 {
		return nil, fmt.Errorf("REWARD_CHAT_ID is required")
	}

	communityChatID, err := getEnvInt64("COMMUNITY_CHAT_ID", rewardChatID)
	if err != nil {
		return nil, err
	}

	referralBonus, err := getEnvDecimal("REFERRAL_BONUS", decimal.NewFromInt(100))
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: database,
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ShutdownTimeout: shutdownTimeout,
		},
		Telegram: models.TelegramConfig{
			BotToken:        botToken,
			WebhookSecret:   getEnvString("TELEGRAM_WEBHOOK_SECRET", ""),
			RewardChatID:    rewardChatID,
			CommunityChatID: communityChatID,
			MiniAppURL:      getEnvString("MINI_APP_URL", "https://t.me/moo_app_bot/moo"),
			AuthDisabled:    getEnvBool("WEBAPP_AUTH_DISABLED", false),
		},
		Settlement: models.SettlementConfig{
			Interval: settleInterval,
		},
		Rewards: models.RewardsConfig{
			TiersFile:     getEnvString("TIERS_FILE", ""),
			ReferralBonus: referralBonus,
		},
	}, nil
}

// LoadDatabase reads only the database configuration, for commands that
// never talk to Telegram.
func LoadDatabase() (models.DatabaseConfig, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return models.DatabaseConfig{}, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return models.DatabaseConfig{}, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return models.DatabaseConfig{}, err
	}

	return models.DatabaseConfig{
		Path:            getEnvString("DATABASE_PATH", "moo.db"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: connMaxLifetime,
		ConnMaxIdleTime: connMaxIdleTime,
		PingTimeout:     pingTimeout,
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return intValue, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}
