// Package webhook turns inbound Telegram updates into balance mutations.
// A chat message from the reward chat becomes at most one pending-balance
// increment; a successful Stars payment becomes a boost credit. Every
// filtered branch is acknowledged with 200 so Telegram does not re-deliver
// no-ops forever.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/rewards"
	"moo-rewards-go/internal/store"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// boostPayloadPrefix marks Stars invoice payloads created for boost purchases.
const boostPayloadPrefix = "boost:"

// PreCheckoutAnswerer acknowledges pre_checkout_query updates. It is the
// only outbound Telegram call the webhook makes.
type PreCheckoutAnswerer interface {
	AnswerPreCheckout(queryID string, ok bool, errorMessage string) error
}

type Handler struct {
	store         store.AccountStore
	rates         *rewards.Table
	bot           PreCheckoutAnswerer
	rewardChatID  int64
	webhookSecret string
}

func NewHandler(accounts store.AccountStore, rates *rewards.Table, bot PreCheckoutAnswerer, cfg models.TelegramConfig) *Handler {
	return &Handler{
		store:         accounts,
		rates:         rates,
		bot:           bot,
		rewardChatID:  cfg.RewardChatID,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// Malformed bodies are acknowledged, not retried: Telegram will
		// never send a different byte stream for the same update.
		zap.L().Warn("Undecodable webhook body", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.handleUpdate(r.Context(), &update); err != nil {
		zap.L().Error("Webhook processing failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	if update.PreCheckoutQuery != nil {
		return h.handlePreCheckout(update.PreCheckoutQuery)
	}

	msg := update.Message
	if msg == nil {
		return nil
	}
	if msg.SuccessfulPayment != nil {
		return h.handleSuccessfulPayment(ctx, msg)
	}
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	reward, err := h.ProcessMessage(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
	if err != nil {
		return err
	}
	if reward.IsPositive() {
		zap.L().Info("Reward accrued",
			zap.Int64("user_id", msg.From.ID),
			zap.String("amount", reward.String()))
	}
	return nil
}

// ProcessMessage turns one chat message into at most one pending-balance
// increment and returns the amount applied (zero on every filtered branch).
// The rate is computed inside the store's read-modify-write closure, from
// the freshly read row of that attempt, so stale boost or task state from a
// prior request can never leak into the increment.
func (h *Handler) ProcessMessage(ctx context.Context, chatID, userID int64, text string) (decimal.Decimal, error) {
	if chatID != h.rewardChatID {
		return decimal.Zero, nil
	}
	if text == "" {
		return decimal.Zero, nil
	}

	applied := decimal.Zero
	_, err := h.store.UpdateAccount(ctx, strconv.FormatInt(userID, 10), func(account *models.UserAccount) error {
		rate := h.rates.RewardRate(account)
		if !rate.IsPositive() {
			applied = decimal.Zero
			return store.ErrNoChange
		}
		account.PendingBalance = account.PendingBalance.Add(rate)
		applied = rate
		return nil
	})
	if errors.Is(err, store.ErrAccountNotFound) {
		// Accounts are created by the Mini App, never by chat activity.
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return applied, nil
}

func (h *Handler) handlePreCheckout(query *tgbotapi.PreCheckoutQuery) error {
	boostID, ok := parseBoostPayload(query.InvoicePayload)
	if !ok || !h.rates.KnownBoost(boostID) {
		return h.bot.AnswerPreCheckout(query.ID, false, "unknown product")
	}
	return h.bot.AnswerPreCheckout(query.ID, true, "")
}

// handleSuccessfulPayment credits a purchased boost. Boosts are owned
// permanently; paying twice for the same tier leaves the set unchanged.
func (h *Handler) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) error {
	boostID, ok := parseBoostPayload(msg.SuccessfulPayment.InvoicePayload)
	if !ok {
		zap.L().Warn("Successful payment with unrecognized payload",
			zap.String("payload", msg.SuccessfulPayment.InvoicePayload))
		return nil
	}
	if msg.From == nil {
		return nil
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	_, err := h.store.UpdateAccount(ctx, userID, func(account *models.UserAccount) error {
		if account.HasBoost(boostID) {
			return store.ErrNoChange
		}
		account.Boosts = append(account.Boosts, boostID)
		return nil
	})
	if errors.Is(err, store.ErrAccountNotFound) {
		zap.L().Warn("Payment from user without account",
			zap.String("user_id", userID),
			zap.String("boost", boostID))
		return nil
	}
	if err != nil {
		return err
	}

	zap.L().Info("Boost credited",
		zap.String("user_id", userID),
		zap.String("boost", boostID),
		zap.Int("stars", msg.SuccessfulPayment.TotalAmount))
	return nil
}

func parseBoostPayload(payload string) (string, bool) {
	if !strings.HasPrefix(payload, boostPayloadPrefix) {
		return "", false
	}
	boostID := strings.TrimPrefix(payload, boostPayloadPrefix)
	return boostID, boostID != ""
}
