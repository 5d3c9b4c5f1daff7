package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupDuplicateSubscriptions removes duplicate tracked_subscriptions rows
// before the unique (user_id, product_id) constraint is added.
// This runs BEFORE AutoMigrate to prevent constraint violations.
func cleanupDuplicateSubscriptions(db *gorm.DB) error {
	if !db.Migrator().HasTable("tracked_subscriptions") {
		return nil // No table, no duplicates to clean
	}

	// Keep the most recently created subscription per (user, product)
	result := db.Exec(`
		DELETE FROM tracked_subscriptions
		WHERE id NOT IN (
			SELECT MAX(id)
			FROM tracked_subscriptions
			GROUP BY user_id, product_id
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d duplicate tracked_subscriptions entries", result.RowsAffected)
	}

	return nil
}

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	return fixLowestPriceFlags(db)
}

// fixLowestPriceFlags clears extra is_lowest_price markers left behind by
// older versions that flagged entries without clearing previous ones. At
// most one entry per product may carry the flag; the ledger recomputes the
// winner on the next price change.
func fixLowestPriceFlags(db *gorm.DB) error {
	if !db.Migrator().HasTable("price_history_entries") {
		return nil
	}

	result := db.Exec(`
		UPDATE price_history_entries SET is_lowest_price = false
		WHERE is_lowest_price = true
		AND id NOT IN (
			SELECT id FROM price_history_entries p
			WHERE p.id = (
				SELECT p2.id FROM price_history_entries p2
				WHERE p2.product_id = p.product_id
				ORDER BY p2.price ASC, p2.observed_at ASC
				LIMIT 1
			)
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleared %d stale lowest-price flags", result.RowsAffected)
	}

	return nil
}
