package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dealradar/price-tracker/internal/models"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.PriceHistoryEntry{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func lowestEntries(t *testing.T, db *gorm.DB, productID string) []models.PriceHistoryEntry {
	t.Helper()

	var entries []models.PriceHistoryEntry
	err := db.Where("product_id = ? AND is_lowest_price = ?", productID, true).Find(&entries).Error
	if err != nil {
		t.Fatalf("Failed to query lowest entries: %v", err)
	}
	return entries
}

func TestAppendAndRecomputeLowest(t *testing.T) {
	db := newTestDB(t)
	lg := New(db)
	now := time.Now()

	prices := []float64{50, 45, 60}
	for i, price := range prices {
		if _, err := lg.Append("p1", price, "USD", 0, now.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := lg.RecomputeLowest("p1"); err != nil {
			t.Fatalf("RecomputeLowest failed: %v", err)
		}
	}

	lowest := lowestEntries(t, db, "p1")
	if len(lowest) != 1 {
		t.Fatalf("Expected exactly 1 lowest entry, got %d", len(lowest))
	}
	if lowest[0].Price != 45 {
		t.Errorf("Expected lowest price 45, got %v", lowest[0].Price)
	}
}

func TestRecomputeLowestMovesFlag(t *testing.T) {
	db := newTestDB(t)
	lg := New(db)
	now := time.Now()

	if _, err := lg.Append("p1", 50, "USD", 0, now); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := lg.RecomputeLowest("p1"); err != nil {
		t.Fatalf("RecomputeLowest failed: %v", err)
	}

	// A new minimum must take over the flag
	if _, err := lg.Append("p1", 30, "USD", 0, now.Add(time.Hour)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := lg.RecomputeLowest("p1"); err != nil {
		t.Fatalf("RecomputeLowest failed: %v", err)
	}

	lowest := lowestEntries(t, db, "p1")
	if len(lowest) != 1 {
		t.Fatalf("Expected exactly 1 lowest entry, got %d", len(lowest))
	}
	if lowest[0].Price != 30 {
		t.Errorf("Expected lowest price 30, got %v", lowest[0].Price)
	}
}

func TestRecomputeLowestTieBreaksByEarliestObservation(t *testing.T) {
	db := newTestDB(t)
	lg := New(db)
	now := time.Now()

	firstID, err := lg.Append("p1", 40, "USD", 0, now)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := lg.Append("p1", 40, "USD", 0, now.Add(time.Hour)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := lg.RecomputeLowest("p1"); err != nil {
		t.Fatalf("RecomputeLowest failed: %v", err)
	}

	lowest := lowestEntries(t, db, "p1")
	if len(lowest) != 1 {
		t.Fatalf("Expected exactly 1 lowest entry, got %d", len(lowest))
	}
	if lowest[0].ID != firstID {
		t.Errorf("Tie should resolve to the earliest observation %s, got %s", firstID, lowest[0].ID)
	}
}

func TestRecomputeLowestNoEntries(t *testing.T) {
	lg := New(newTestDB(t))

	if err := lg.RecomputeLowest("missing"); err != nil {
		t.Errorf("RecomputeLowest on empty history should be a no-op, got %v", err)
	}
}

func TestRecomputeLowestIsolatedPerProduct(t *testing.T) {
	db := newTestDB(t)
	lg := New(db)
	now := time.Now()

	for _, productID := range []string{"p1", "p2"} {
		if _, err := lg.Append(productID, 20, "USD", 0, now); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := lg.RecomputeLowest(productID); err != nil {
			t.Fatalf("RecomputeLowest failed: %v", err)
		}
	}

	// A cheaper entry for p2 must not disturb p1's flag
	if _, err := lg.Append("p2", 10, "USD", 0, now.Add(time.Hour)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := lg.RecomputeLowest("p2"); err != nil {
		t.Fatalf("RecomputeLowest failed: %v", err)
	}

	if lowest := lowestEntries(t, db, "p1"); len(lowest) != 1 || lowest[0].Price != 20 {
		t.Errorf("p1 flag disturbed: %+v", lowest)
	}
	if lowest := lowestEntries(t, db, "p2"); len(lowest) != 1 || lowest[0].Price != 10 {
		t.Errorf("p2 flag wrong: %+v", lowest)
	}
}

func TestHistoryOrderingAndSince(t *testing.T) {
	db := newTestDB(t)
	lg := New(db)
	now := time.Now()

	// Insert out of chronological order
	observations := []struct {
		price float64
		at    time.Time
	}{
		{55, now.Add(-1 * time.Hour)},
		{60, now.Add(-72 * time.Hour)},
		{50, now},
	}
	for _, obs := range observations {
		if _, err := lg.Append("p1", obs.price, "USD", 0, obs.at); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := lg.History("p1", time.Time{})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ObservedAt.Before(entries[i-1].ObservedAt) {
			t.Errorf("History not ascending by observation time at index %d", i)
		}
	}

	recent, err := lg.History("p1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("History with since failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("Expected 2 entries within 24h, got %d", len(recent))
	}
}

func TestConcurrentAppendAndRecompute(t *testing.T) {
	db := newTestDB(t)
	lg := New(db)
	now := time.Now()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			price := float64(100 - n) // distinct prices, minimum 100-(writers-1)
			if _, err := lg.Append("p1", price, "USD", 0, now.Add(time.Duration(n)*time.Minute)); err != nil {
				t.Errorf("Append failed: %v", err)
				return
			}
			if err := lg.RecomputeLowest("p1"); err != nil {
				t.Errorf("RecomputeLowest failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// Regardless of interleaving: exactly one flag, and it marks the minimum
	lowest := lowestEntries(t, db, "p1")
	if len(lowest) != 1 {
		t.Fatalf("Expected exactly 1 lowest entry after concurrent writes, got %d", len(lowest))
	}

	var minPrice float64
	if err := db.Model(&models.PriceHistoryEntry{}).Where("product_id = ?", "p1").Select("MIN(price)").Scan(&minPrice).Error; err != nil {
		t.Fatalf("Failed to query min price: %v", err)
	}
	if lowest[0].Price != minPrice {
		t.Errorf("Lowest flag on price %v, true minimum is %v", lowest[0].Price, minPrice)
	}
}
