package monitor

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/dealradar/price-tracker/internal/models"
)

// TrackingStore is the read-only view of the tracking subsystem the
// orchestrator depends on. The tracking API owns the data; the monitor only
// needs to enumerate work and load subscribers.
type TrackingStore interface {
	// TrackedProductIDs returns the distinct product IDs referenced by at
	// least one enabled subscription. Products nobody tracks are never
	// refreshed.
	TrackedProductIDs() ([]string, error)

	// SubscriptionsForProduct returns the enabled subscriptions for one
	// product.
	SubscriptionsForProduct(productID string) ([]models.TrackedSubscription, error)

	// UsersByID loads the users behind a set of subscriptions.
	UsersByID(ids []string) (map[string]models.User, error)
}

type gormTrackingStore struct {
	db *gorm.DB
}

// NewTrackingStore returns a TrackingStore backed by the shared database.
func NewTrackingStore(db *gorm.DB) TrackingStore {
	return &gormTrackingStore{db: db}
}

func (s *gormTrackingStore) TrackedProductIDs() ([]string, error) {
	var ids []string
	err := s.db.Model(&models.TrackedSubscription{}).
		Where("alert_enabled = ?", true).
		Distinct("product_id").
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tracked products: %w", err)
	}
	return ids, nil
}

func (s *gormTrackingStore) SubscriptionsForProduct(productID string) ([]models.TrackedSubscription, error) {
	var subs []models.TrackedSubscription
	err := s.db.Where("product_id = ? AND alert_enabled = ?", productID, true).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions for product %s: %w", productID, err)
	}
	return subs, nil
}

func (s *gormTrackingStore) UsersByID(ids []string) (map[string]models.User, error) {
	if len(ids) == 0 {
		return map[string]models.User{}, nil
	}

	var users []models.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}
