// Package monitor contains the price monitoring engine: the cycle
// orchestrator, the scheduler that drives it, and the read-only view of the
// tracking subsystem.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dealradar/price-tracker/internal/models"
)

// Monitor ties the orchestrator to its schedule and keeps the last cycle's
// report around for the status endpoint.
type Monitor struct {
	orchestrator *Orchestrator
	scheduler    *Scheduler

	mu         sync.RWMutex
	lastReport *CycleReport
	lastErr    error
}

// Status is the operator-facing snapshot of the monitor.
type Status struct {
	Running    bool         `json:"running"`
	NextRun    time.Time    `json:"next_run,omitempty"`
	LastReport *CycleReport `json:"last_report,omitempty"`
}

// New builds a monitor running orchestrator cycles on the given cron
// schedule.
func New(orchestrator *Orchestrator, schedule string) (*Monitor, error) {
	m := &Monitor{orchestrator: orchestrator}

	scheduler, err := NewScheduler(schedule, m.runCycle)
	if err != nil {
		return nil, err
	}
	m.scheduler = scheduler
	return m, nil
}

// Start begins scheduled cycles. Blocks until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.scheduler.Start(ctx)
	<-ctx.Done()
	m.scheduler.Stop()
}

// runCycle is the scheduler's runFn: execute one cycle and retain its report.
func (m *Monitor) runCycle(ctx context.Context) {
	m.cycle(ctx)
}

// cycle executes one orchestrator pass and retains its outcome for the
// status endpoint.
func (m *Monitor) cycle(ctx context.Context) (*CycleReport, error) {
	report, err := m.orchestrator.RunCycle(ctx)

	m.mu.Lock()
	m.lastErr = err
	if report != nil {
		m.lastReport = report
	}
	m.mu.Unlock()

	if err != nil {
		log.Printf("Price monitor: cycle failed: %v", err)
	}
	return report, err
}

// RunNow triggers a full cycle immediately, sharing the overlap guard with
// scheduled ticks. Returns ErrCycleRunning if one is already in flight. The
// returned report is the one this call produced, captured while the guard is
// held so a scheduled tick landing right after cannot swap it out.
func (m *Monitor) RunNow(ctx context.Context) (*CycleReport, error) {
	var report *CycleReport
	var runErr error
	if err := m.scheduler.tryRun(ctx, func(ctx context.Context) {
		report, runErr = m.cycle(ctx)
	}); err != nil {
		return nil, err
	}
	return report, runErr
}

// RefreshProduct refreshes a single product outside the cycle guard; the
// ledger's per-product locking keeps it safe alongside a running cycle.
func (m *Monitor) RefreshProduct(ctx context.Context, productID string) (*models.Product, error) {
	return m.orchestrator.RefreshProduct(ctx, productID)
}

// Status reports whether a cycle is running, when the next one fires, and
// the last report.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Status{
		Running:    m.scheduler.Running(),
		NextRun:    m.scheduler.NextRun(),
		LastReport: m.lastReport,
	}
}
