package models

import (
	"math"
	"time"
)

// Product is a tracked catalog item. The monitoring core owns the price
// fields; everything else is descriptive data refreshed from the catalog
// source.
type Product struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	ASIN            string    `json:"asin" gorm:"not null;uniqueIndex"`
	Title           string    `json:"title" gorm:"not null"`
	CurrentPrice    float64   `json:"current_price"`
	OriginalPrice   float64   `json:"original_price"`
	Currency        string    `json:"currency" gorm:"default:'USD'"`
	DiscountPercent int       `json:"discount_percent"`
	ImageURL        string    `json:"image_url"`
	ProductURL      string    `json:"product_url"`
	Availability    string    `json:"availability"`
	Rating          float64   `json:"rating"`
	ReviewCount     int       `json:"review_count"`
	Store           string    `json:"store" gorm:"default:'Amazon'"`
	LastUpdatedAt   time.Time `json:"last_updated_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DiscountPercent computes the rounded percentage discount of current
// relative to original. Returns 0 unless original is a real markdown
// baseline (original > current and original > 0).
func DiscountPercent(original, current float64) int {
	if original <= 0 || original <= current {
		return 0
	}
	return int(math.Round((original - current) / original * 100))
}
