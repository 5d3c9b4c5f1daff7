// Package metrics provides Prometheus metrics for the price tracker.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// Cycle metrics
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_cycles_total",
			Help: "Total number of completed price update cycles",
		},
	)

	CyclesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_cycles_skipped_total",
			Help: "Scheduled ticks skipped because a cycle was still running",
		},
	)

	CyclesFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_cycles_failed_total",
			Help: "Cycles aborted before processing any products",
		},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricetracker_cycle_duration_seconds",
			Help:    "Time taken to run a full price update cycle",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ProductsUpdatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_products_updated_total",
			Help: "Products whose price changed and was persisted",
		},
	)

	ProductsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_products_skipped_total",
			Help: "Products skipped because their price did not move",
		},
	)

	ProductsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetracker_products_failed_total",
			Help: "Per-product failures during update cycles",
		},
		[]string{"kind"}, // "transient", "permanent", "persistence"
	)

	// Alert metrics
	AlertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetracker_alerts_fired_total",
			Help: "Notification intents emitted by the alert evaluator",
		},
		[]string{"reason"}, // "threshold_drop", "target_price"
	)

	AlertSendErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_alert_send_errors_total",
			Help: "Notification deliveries that failed",
		},
	)

	// Catalog source metrics
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetracker_catalog_requests_total",
			Help: "Catalog API requests by outcome",
		},
		[]string{"result"}, // "ok", "not_found", "malformed", "rate_limited", "error"
	)

	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_catalog_cache_hits_total",
			Help: "Catalog response cache hit count",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_catalog_cache_misses_total",
			Help: "Catalog response cache miss count",
		},
	)

	// Inventory metrics
	TrackedProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricetracker_tracked_products",
			Help: "Distinct products referenced by enabled subscriptions",
		},
	)

	HistoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricetracker_history_entries",
			Help: "Total price history entries stored",
		},
	)
)

// UpdateInventoryMetrics refreshes the gauges derived from the database.
// Called at the end of each cycle.
func UpdateInventoryMetrics(db *gorm.DB) {
	var tracked int64
	db.Table("tracked_subscriptions").
		Where("alert_enabled = ?", true).
		Distinct("product_id").
		Count(&tracked)
	TrackedProducts.Set(float64(tracked))

	var entries int64
	db.Table("price_history_entries").Count(&entries)
	HistoryEntries.Set(float64(entries))
}
