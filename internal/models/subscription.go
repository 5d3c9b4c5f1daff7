package models

import "time"

// TrackedSubscription records a user's interest in a product. Owned by the
// tracking API; the monitoring core only reads it when evaluating alerts.
// A user may track a given product at most once.
type TrackedSubscription struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	UserID                string    `json:"user_id" gorm:"not null;uniqueIndex:idx_sub_user_product"`
	ProductID             string    `json:"product_id" gorm:"not null;uniqueIndex:idx_sub_user_product"`
	TargetPrice           *float64  `json:"target_price,omitempty"`
	AlertEnabled          *bool     `json:"alert_enabled" gorm:"default:true"`
	AlertThresholdPercent *float64  `json:"alert_threshold_percent,omitempty"`
	Notes                 string    `json:"notes,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// AlertsEnabled reports whether this subscription should alert. A pointer is
// required so an explicit false survives Create alongside the default-true
// column; nil means the default applies.
func (s TrackedSubscription) AlertsEnabled() bool {
	return s.AlertEnabled == nil || *s.AlertEnabled
}
