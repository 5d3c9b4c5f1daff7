package models

import "time"

// User holds the subscriber fields the alert path needs. Registration and
// auth live in a separate service; this record is read-only here.
type User struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Email string `json:"email" gorm:"not null;uniqueIndex"`
	Name  string `json:"name"`

	// PriceAlertThreshold is the user's default drop percentage, used when a
	// subscription does not set its own threshold.
	PriceAlertThreshold float64 `json:"price_alert_threshold" gorm:"default:10"`

	// TelegramChatID is set once the user has linked the Telegram bot.
	// Zero means no Telegram delivery for this user.
	TelegramChatID int64 `json:"telegram_chat_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
