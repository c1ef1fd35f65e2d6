// Package telegram wraps the Bot API calls the reward flows depend on:
// channel-membership checks for social tasks, Telegram Stars invoice links
// for boost purchases, and pre-checkout acknowledgements.
package telegram

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// memberStatuses are the getChatMember statuses that count as "joined".
var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
	"restricted":    true,
}

type Client struct {
	bot *tgbotapi.BotAPI
}

func NewClient(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API client: %w", err)
	}
	zap.L().Info("Telegram bot client ready", zap.String("username", bot.Self.UserName))
	return &Client{bot: bot}, nil
}

// IsChatMember reports whether userID has joined chatID.
func (c *Client) IsChatMember(chatID, userID int64) (bool, error) {
	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("getChatMember failed: %w", err)
	}
	return memberStatuses[member.Status], nil
}

// CreateInvoiceLink creates a Telegram Stars (XTR) invoice link for a boost
// purchase. Stars invoices carry an empty provider token and amounts are
// denominated directly in stars.
func (c *Client) CreateInvoiceLink(title, description, payload string, stars int) (string, error) {
	prices, err := json.Marshal([]tgbotapi.LabeledPrice{{Label: title, Amount: stars}})
	if err != nil {
		return "", fmt.Errorf("failed to encode prices: %w", err)
	}

	params := tgbotapi.Params{}
	params["title"] = title
	params["description"] = description
	params["payload"] = payload
	params["provider_token"] = ""
	params["currency"] = "XTR"
	params["prices"] = string(prices)

	resp, err := c.bot.MakeRequest("createInvoiceLink", params)
	if err != nil {
		return "", fmt.Errorf("createInvoiceLink failed: %w", err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("failed to decode invoice link: %w", err)
	}
	return link, nil
}

// AnswerPreCheckout acknowledges a pre_checkout_query. Telegram requires an
// answer within 10 seconds or the payment fails on the client.
func (c *Client) AnswerPreCheckout(queryID string, ok bool, errorMessage string) error {
	_, err := c.bot.Request(tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errorMessage,
	})
	if err != nil {
		return fmt.Errorf("answerPreCheckoutQuery failed: %w", err)
	}
	return nil
}
