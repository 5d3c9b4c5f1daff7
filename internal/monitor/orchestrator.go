package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/dealradar/price-tracker/internal/alert"
	"github.com/dealradar/price-tracker/internal/catalog"
	"github.com/dealradar/price-tracker/internal/ledger"
	"github.com/dealradar/price-tracker/internal/metrics"
	"github.com/dealradar/price-tracker/internal/models"
	"github.com/dealradar/price-tracker/internal/notify"
)

const (
	defaultWorkerCount  = 4
	defaultFetchTimeout = 10 * time.Second
)

// CycleError records why one product could not be updated.
type CycleError struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// CycleReport summarizes one complete pass over the tracked products.
type CycleReport struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Updated    int          `json:"updated"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	AlertsSent int          `json:"alerts_sent"`
	Errors     []CycleError `json:"errors,omitempty"`
}

// Orchestrator refreshes tracked products from the catalog, maintains the
// price history ledger, and hands price changes to the alert evaluator.
// A single product's failure never aborts the cycle.
type Orchestrator struct {
	db         *gorm.DB
	source     catalog.Source
	ledger     *ledger.Ledger
	tracking   TrackingStore
	evaluator  *alert.Evaluator
	dispatcher notify.Dispatcher

	workers      int
	fetchTimeout time.Duration
}

// OrchestratorOptions tunes cycle execution. Zero values fall back to
// defaults.
type OrchestratorOptions struct {
	Workers      int
	FetchTimeout time.Duration
}

func NewOrchestrator(db *gorm.DB, source catalog.Source, lg *ledger.Ledger, tracking TrackingStore, evaluator *alert.Evaluator, dispatcher notify.Dispatcher, opts OrchestratorOptions) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkerCount
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	return &Orchestrator{
		db:           db,
		source:       source,
		ledger:       lg,
		tracking:     tracking,
		evaluator:    evaluator,
		dispatcher:   dispatcher,
		workers:      opts.Workers,
		fetchTimeout: opts.FetchTimeout,
	}
}

// RunCycle refreshes every tracked product once, with bounded parallelism.
// Returns an error only when the tracked-product set itself cannot be
// enumerated; per-product failures land in the report instead.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleReport, error) {
	start := time.Now()

	productIDs, err := o.tracking.TrackedProductIDs()
	if err != nil {
		metrics.CyclesFailedTotal.Inc()
		return nil, fmt.Errorf("cycle aborted: %w", err)
	}

	log.Printf("Price monitor: updating prices for %d tracked products", len(productIDs))

	report := &CycleReport{StartedAt: start}
	var mu sync.Mutex

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for productID := range jobs {
				// Cancellation is cooperative: an in-flight fetch times out
				// on its own, but no new product is picked up.
				if ctx.Err() != nil {
					continue
				}
				outcome := o.processProduct(ctx, productID)

				mu.Lock()
				switch outcome.status {
				case statusUpdated:
					report.Updated++
					report.AlertsSent += outcome.alertsSent
				case statusSkipped:
					report.Skipped++
				case statusFailed:
					report.Failed++
					report.Errors = append(report.Errors, CycleError{
						ProductID: productID,
						Reason:    outcome.reason,
					})
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range productIDs {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	report.FinishedAt = time.Now()

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(report.FinishedAt.Sub(start).Seconds())
	metrics.UpdateInventoryMetrics(o.db)

	log.Printf("Price monitor: cycle finished in %v (updated=%d skipped=%d failed=%d alerts=%d)",
		report.FinishedAt.Sub(start).Round(time.Millisecond),
		report.Updated, report.Skipped, report.Failed, report.AlertsSent)

	return report, nil
}

type productStatus int

const (
	statusUpdated productStatus = iota
	statusSkipped
	statusFailed
)

type productOutcome struct {
	status     productStatus
	reason     string
	alertsSent int
}

// processProduct runs the full fetch, compare, persist, alert pipeline for
// one product.
func (o *Orchestrator) processProduct(ctx context.Context, productID string) productOutcome {
	var product models.Product
	if err := o.db.First(&product, "id = ?", productID).Error; err != nil {
		log.Printf("Price monitor: product %s not loadable: %v", productID, err)
		metrics.ProductsFailedTotal.WithLabelValues("persistence").Inc()
		return productOutcome{status: statusFailed, reason: fmt.Sprintf("load product: %v", err)}
	}

	data, err := o.fetchWithRetry(ctx, product.ASIN)
	if err != nil {
		kind := "transient"
		if catalog.IsPermanent(err) {
			kind = "permanent"
		}
		log.Printf("Price monitor: fetch failed for %s (%s): %v", product.ASIN, kind, err)
		metrics.ProductsFailedTotal.WithLabelValues(kind).Inc()
		return productOutcome{status: statusFailed, reason: err.Error()}
	}

	newPrice := data.CurrentPrice
	newOriginal := data.OriginalPrice
	if newOriginal <= 0 {
		newOriginal = newPrice
	}
	newDiscount := models.DiscountPercent(newOriginal, newPrice)

	// Unchanged price means zero writes: no product save, no history entry.
	if newPrice == product.CurrentPrice {
		metrics.ProductsSkippedTotal.Inc()
		return productOutcome{status: statusSkipped}
	}

	if data.Title != "" {
		product.Title = data.Title
	}
	product.CurrentPrice = newPrice
	product.OriginalPrice = newOriginal
	product.DiscountPercent = newDiscount
	if data.Currency != "" {
		product.Currency = data.Currency
	}
	if data.ImageURL != "" {
		product.ImageURL = data.ImageURL
	}
	if data.ProductURL != "" {
		product.ProductURL = data.ProductURL
	}
	product.Availability = data.Availability
	product.Rating = data.Rating
	product.ReviewCount = data.ReviewCount
	product.LastUpdatedAt = time.Now()

	// The product update and the history append commit together or not at
	// all; a failure here leaves the previous state untouched.
	observedAt := product.LastUpdatedAt
	err = o.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&product).Error; err != nil {
			return fmt.Errorf("save product: %w", err)
		}
		_, err := o.ledger.WithTx(tx).Append(product.ID, newPrice, product.Currency, newDiscount, observedAt)
		return err
	})
	if err != nil {
		log.Printf("Price monitor: persistence failed for %s: %v", product.ASIN, err)
		metrics.ProductsFailedTotal.WithLabelValues("persistence").Inc()
		return productOutcome{status: statusFailed, reason: err.Error()}
	}

	if err := o.ledger.RecomputeLowest(product.ID); err != nil {
		// The entry is written; the flag settles on the next recompute.
		log.Printf("Price monitor: lowest-price recompute failed for %s: %v", product.ASIN, err)
	}

	metrics.ProductsUpdatedTotal.Inc()
	log.Printf("Price monitor: updated price for %s: %.2f %s", product.ASIN, newPrice, product.Currency)

	return productOutcome{
		status:     statusUpdated,
		alertsSent: o.sendAlerts(ctx, &product),
	}
}

// fetchWithRetry fetches catalog data with one immediate retry on transient
// failures. Permanent failures (not-found, malformed) are never retried
// within a cycle.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, asin string) (*catalog.PriceData, error) {
	fctx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	data, err := o.source.FetchPrice(fctx, asin)
	cancel()
	if err == nil || catalog.IsPermanent(err) || errors.Is(err, context.Canceled) {
		return data, err
	}

	fctx, cancel = context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()
	return o.source.FetchPrice(fctx, asin)
}

// sendAlerts evaluates the product's subscriptions and dispatches the
// resulting intents. Dispatch failures are logged and counted, never
// propagated: they must not affect other subscribers or the cycle outcome.
func (o *Orchestrator) sendAlerts(ctx context.Context, product *models.Product) int {
	subs, err := o.tracking.SubscriptionsForProduct(product.ID)
	if err != nil {
		log.Printf("Price monitor: failed to load subscribers for %s: %v", product.ASIN, err)
		return 0
	}
	if len(subs) == 0 {
		return 0
	}

	userIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		userIDs = append(userIDs, sub.UserID)
	}
	users, err := o.tracking.UsersByID(userIDs)
	if err != nil {
		log.Printf("Price monitor: failed to load users for %s: %v", product.ASIN, err)
		return 0
	}

	sent := 0
	for _, intent := range o.evaluator.Evaluate(product, subs, users) {
		metrics.AlertsFiredTotal.WithLabelValues(intent.Reason).Inc()

		user, ok := users[intent.UserID]
		if !ok {
			log.Printf("Price monitor: alert for unknown user %s dropped", intent.UserID)
			continue
		}
		if err := o.dispatcher.Send(ctx, user, *product, intent.PercentDrop, intent.Reason); err != nil {
			metrics.AlertSendErrorsTotal.Inc()
			log.Printf("Price monitor: notification to %s failed: %v", user.Email, err)
			continue
		}
		sent++
	}
	return sent
}

// cacheInvalidator is implemented by catalog sources that cache responses.
type cacheInvalidator interface {
	InvalidateCache(asin string)
}

// RefreshProduct runs the update pipeline for a single product on demand.
// Any cached catalog observation for the product is dropped first so the
// caller gets live data rather than a fetch from the last cycle.
// Returns the refreshed product, or an error describing why it could not be
// updated.
func (o *Orchestrator) RefreshProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := o.db.First(&product, "id = ?", productID).Error; err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	if inv, ok := o.source.(cacheInvalidator); ok {
		inv.InvalidateCache(product.ASIN)
	}

	outcome := o.processProduct(ctx, productID)
	if outcome.status == statusFailed {
		return nil, errors.New(outcome.reason)
	}

	if err := o.db.First(&product, "id = ?", productID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload product %s: %w", productID, err)
	}
	return &product, nil
}
