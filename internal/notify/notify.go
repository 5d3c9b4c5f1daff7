// Package notify delivers price drop alerts to subscribers.
package notify

import (
	"context"
	"fmt"
	"log"
	"math"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dealradar/price-tracker/internal/models"
)

// Dispatcher sends one notification to one user. Implementations must treat
// delivery failures as their caller does: log, count, move on.
type Dispatcher interface {
	Send(ctx context.Context, user models.User, product models.Product, percentDrop float64, reason string) error
}

// LogDispatcher writes alerts to the application log. Default transport when
// no delivery channel is configured.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Send(_ context.Context, user models.User, product models.Product, percentDrop float64, reason string) error {
	log.Printf("ALERT: notifying %s about %d%% price drop for %q (%s, now %.2f %s)",
		user.Email, int(math.Round(percentDrop)), product.Title, reason, product.CurrentPrice, product.Currency)
	return nil
}

// TelegramDispatcher delivers alerts through a Telegram bot to users that
// have linked a chat.
type TelegramDispatcher struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramDispatcher(token string) (*TelegramDispatcher, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	log.Printf("Telegram dispatcher authorized as @%s", bot.Self.UserName)
	return &TelegramDispatcher{bot: bot}, nil
}

func (d *TelegramDispatcher) Send(_ context.Context, user models.User, product models.Product, percentDrop float64, reason string) error {
	if user.TelegramChatID == 0 {
		return fmt.Errorf("user %s has no linked Telegram chat", user.ID)
	}

	text := fmt.Sprintf(
		"PRICE DROP\n\nProduct: %s\nCurrent price: %.2f %s\nOriginal price: %.2f %s\nDrop: %.1f%%\n",
		product.Title,
		product.CurrentPrice, product.Currency,
		product.OriginalPrice, product.Currency,
		percentDrop,
	)
	if reason == "target_price" {
		text += "Your target price has been reached.\n"
	}
	if product.ProductURL != "" {
		text += "\nLink: " + product.ProductURL
	}

	msg := tgbotapi.NewMessage(user.TelegramChatID, text)
	if _, err := d.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message to user %s: %w", user.ID, err)
	}
	return nil
}
