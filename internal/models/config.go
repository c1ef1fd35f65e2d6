package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Telegram   TelegramConfig
	Settlement SettlementConfig
	Rewards    RewardsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// TelegramConfig holds bot credentials and the identifiers the reward and
// task flows depend on. BotToken and RewardChatID are required.
type TelegramConfig struct {
	BotToken        string
	WebhookSecret   string
	RewardChatID    int64
	CommunityChatID int64
	MiniAppURL      string
	AuthDisabled    bool
}

// SettlementConfig holds the periodic settlement cadence.
type SettlementConfig struct {
	Interval time.Duration
}

// RewardsConfig holds eligibility-evaluator inputs.
type RewardsConfig struct {
	TiersFile     string
	ReferralBonus decimal.Decimal
}
