package monitor

import (
	"testing"

	"github.com/dealradar/price-tracker/internal/models"
)

func TestSubscriptionDisabledFlagSurvivesCreate(t *testing.T) {
	db := newTestDB(t)

	sub := models.TrackedSubscription{UserID: "u1", ProductID: "p1", AlertEnabled: boolPtr(false)}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}

	var got models.TrackedSubscription
	if err := db.First(&got, sub.ID).Error; err != nil {
		t.Fatalf("Failed to reload subscription: %v", err)
	}
	if got.AlertsEnabled() {
		t.Error("Subscription created with alerts disabled was persisted as enabled")
	}

	// Leaving the flag unset picks up the column default
	unset := models.TrackedSubscription{UserID: "u2", ProductID: "p1"}
	if err := db.Create(&unset).Error; err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}
	got = models.TrackedSubscription{}
	if err := db.First(&got, unset.ID).Error; err != nil {
		t.Fatalf("Failed to reload subscription: %v", err)
	}
	if !got.AlertsEnabled() {
		t.Error("Subscription created without the flag should default to enabled")
	}
}

func TestTrackingStoreFiltersDisabledSubscriptions(t *testing.T) {
	db := newTestDB(t)
	seed := []models.TrackedSubscription{
		{UserID: "u1", ProductID: "p1", AlertEnabled: boolPtr(true)},
		{UserID: "u2", ProductID: "p1", AlertEnabled: boolPtr(false)},
		{UserID: "u1", ProductID: "p2", AlertEnabled: boolPtr(false)},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("Failed to seed subscription: %v", err)
		}
	}

	store := NewTrackingStore(db)

	ids, err := store.TrackedProductIDs()
	if err != nil {
		t.Fatalf("TrackedProductIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("Expected only p1 to be tracked, got %v", ids)
	}

	subs, err := store.SubscriptionsForProduct("p1")
	if err != nil {
		t.Fatalf("SubscriptionsForProduct failed: %v", err)
	}
	if len(subs) != 1 || subs[0].UserID != "u1" {
		t.Errorf("Expected only u1's enabled subscription, got %+v", subs)
	}
}
