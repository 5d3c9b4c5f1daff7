package models

import "time"

// PriceHistoryEntry is one immutable price observation for a product.
// Entries are append-only; the only field ever rewritten after creation is
// IsLowestPrice, which the ledger recomputes when a new entry lands.
type PriceHistoryEntry struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	ProductID       string    `json:"product_id" gorm:"not null;index:idx_history_product_observed"`
	Price           float64   `json:"price" gorm:"not null"`
	Currency        string    `json:"currency" gorm:"default:'USD'"`
	DiscountPercent int       `json:"discount_percent"`
	ObservedAt      time.Time `json:"observed_at" gorm:"not null;index:idx_history_product_observed"`
	IsLowestPrice   bool      `json:"is_lowest_price"`
	CreatedAt       time.Time `json:"created_at"`
}
