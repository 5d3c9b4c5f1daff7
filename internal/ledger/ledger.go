// Package ledger maintains the append-only price history and its
// lowest-observed-price marker.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealradar/price-tracker/internal/models"
)

// Ledger writes immutable price observations and keeps exactly one entry per
// product flagged as the historical minimum. Appends and recomputes for the
// same product serialize on a per-product lock, so cross-product work stays
// parallel.
type Ledger struct {
	db    *gorm.DB
	locks *lockTable
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{
		db:    db,
		locks: newLockTable(),
	}
}

// WithTx returns a Ledger that writes through tx while sharing this ledger's
// per-product locks. Used when an append must commit atomically with a
// product update.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, locks: l.locks}
}

// Append writes a new immutable history entry and returns its ID.
func (l *Ledger) Append(productID string, price float64, currency string, discountPercent int, observedAt time.Time) (string, error) {
	unlock := l.locks.lock(productID)
	defer unlock()

	entry := models.PriceHistoryEntry{
		ID:              uuid.NewString(),
		ProductID:       productID,
		Price:           price,
		Currency:        currency,
		DiscountPercent: discountPercent,
		ObservedAt:      observedAt,
	}
	if err := l.db.Create(&entry).Error; err != nil {
		return "", fmt.Errorf("failed to append history entry for product %s: %w", productID, err)
	}
	return entry.ID, nil
}

// RecomputeLowest finds the minimum-price entry for the product (ties broken
// by earliest observation), clears every other lowest-price flag, and sets
// the flag on the winner. Runs in a transaction under the product's lock so
// concurrent appends can never leave two entries flagged, or none when
// entries exist.
func (l *Ledger) RecomputeLowest(productID string) error {
	unlock := l.locks.lock(productID)
	defer unlock()

	return l.db.Transaction(func(tx *gorm.DB) error {
		var winner models.PriceHistoryEntry
		err := tx.Where("product_id = ?", productID).
			Order("price ASC").
			Order("observed_at ASC").
			First(&winner).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // no entries, nothing to flag
		}
		if err != nil {
			return fmt.Errorf("failed to find lowest price for product %s: %w", productID, err)
		}

		err = tx.Model(&models.PriceHistoryEntry{}).
			Where("product_id = ? AND is_lowest_price = ? AND id <> ?", productID, true, winner.ID).
			Update("is_lowest_price", false).Error
		if err != nil {
			return fmt.Errorf("failed to clear lowest-price flags for product %s: %w", productID, err)
		}

		err = tx.Model(&models.PriceHistoryEntry{}).
			Where("id = ?", winner.ID).
			Update("is_lowest_price", true).Error
		if err != nil {
			return fmt.Errorf("failed to set lowest-price flag for product %s: %w", productID, err)
		}
		return nil
	})
}

// History returns the product's entries ascending by observation time.
// A zero since returns everything.
func (l *Ledger) History(productID string, since time.Time) ([]models.PriceHistoryEntry, error) {
	query := l.db.Where("product_id = ?", productID)
	if !since.IsZero() {
		query = query.Where("observed_at >= ?", since)
	}

	var entries []models.PriceHistoryEntry
	if err := query.Order("observed_at ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load history for product %s: %w", productID, err)
	}
	return entries, nil
}

// lockTable hands out one mutex per product ID. Lock scope is the product,
// not the whole ledger.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) lock(productID string) (unlock func()) {
	t.mu.Lock()
	m, ok := t.locks[productID]
	if !ok {
		m = &sync.Mutex{}
		t.locks[productID] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m.Unlock
}
