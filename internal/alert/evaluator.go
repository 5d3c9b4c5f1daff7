// Package alert decides which subscribers get notified after a price change.
package alert

import (
	"github.com/dealradar/price-tracker/internal/models"
)

// Reasons attached to a NotificationIntent.
const (
	ReasonThresholdDrop = "threshold_drop"
	ReasonTargetPrice   = "target_price"
)

// NotificationIntent is a decision to notify one user about one product.
// Delivery is someone else's problem.
type NotificationIntent struct {
	UserID      string  `json:"user_id"`
	ProductID   string  `json:"product_id"`
	PercentDrop float64 `json:"percent_drop"`
	Reason      string  `json:"reason"`
}

// Evaluator applies the alert rules for a price-changed product over its
// subscriber set.
type Evaluator struct {
	defaultThreshold float64
}

func NewEvaluator(defaultThreshold float64) *Evaluator {
	if defaultThreshold <= 0 {
		defaultThreshold = 10
	}
	return &Evaluator{defaultThreshold: defaultThreshold}
}

// Evaluate returns one intent per enabled subscription whose conditions the
// product's current price satisfies. users resolves the per-user default
// threshold; missing users fall through to the global default.
//
// A subscription fires when the drop relative to the original listed price
// meets its threshold, or when a target price is set and the current price
// is at or below it. The same sustained discount will fire again on each
// later price change: no alerted-at state is kept.
func (e *Evaluator) Evaluate(product *models.Product, subs []models.TrackedSubscription, users map[string]models.User) []NotificationIntent {
	percentDrop := 0.0
	if product.OriginalPrice > 0 {
		percentDrop = (product.OriginalPrice - product.CurrentPrice) / product.OriginalPrice * 100
	}

	var intents []NotificationIntent
	for _, sub := range subs {
		if !sub.AlertsEnabled() {
			continue
		}

		threshold := e.thresholdFor(sub, users)

		switch {
		case percentDrop >= threshold:
			intents = append(intents, NotificationIntent{
				UserID:      sub.UserID,
				ProductID:   product.ID,
				PercentDrop: percentDrop,
				Reason:      ReasonThresholdDrop,
			})
		case sub.TargetPrice != nil && product.CurrentPrice <= *sub.TargetPrice:
			intents = append(intents, NotificationIntent{
				UserID:      sub.UserID,
				ProductID:   product.ID,
				PercentDrop: percentDrop,
				Reason:      ReasonTargetPrice,
			})
		}
	}
	return intents
}

// thresholdFor resolves the drop threshold for a subscription: its own
// setting, then the user's default, then the global default.
func (e *Evaluator) thresholdFor(sub models.TrackedSubscription, users map[string]models.User) float64 {
	if sub.AlertThresholdPercent != nil && *sub.AlertThresholdPercent > 0 {
		return *sub.AlertThresholdPercent
	}
	if user, ok := users[sub.UserID]; ok && user.PriceAlertThreshold > 0 {
		return user.PriceAlertThreshold
	}
	return e.defaultThreshold
}
