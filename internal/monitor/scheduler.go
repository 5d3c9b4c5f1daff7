package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dealradar/price-tracker/internal/metrics"
)

// ErrCycleRunning is returned when a run is requested while a previous cycle
// has not finished.
var ErrCycleRunning = errors.New("a price update cycle is already running")

// Scheduler fires runFn on a cron schedule, guaranteeing at most one
// invocation at a time. A tick that lands while a run is in flight is
// skipped and logged, never queued. Stop cancels future ticks without
// interrupting an in-flight run.
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	runFn   func(context.Context)

	runMu sync.Mutex // held for the duration of a run

	mu      sync.Mutex
	baseCtx context.Context
	started bool
}

// NewScheduler parses a standard 5-field cron expression and prepares the
// schedule. The schedule does not tick until Start is called.
func NewScheduler(schedule string, runFn func(context.Context)) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		runFn:   runFn,
		baseCtx: context.Background(),
	}

	entryID, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		return nil, err
	}
	s.entryID = entryID
	return s, nil
}

// Start begins ticking. ctx bounds every scheduled run: cancelling it makes
// in-flight cycles wind down cooperatively.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("Scheduler started: next run at %v", s.NextRun().Format(time.RFC3339))
}

// Stop cancels future ticks. An in-flight run is left to complete.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// tick is the cron callback: run unless a previous run is still going.
func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	if err := s.TryRun(ctx); errors.Is(err, ErrCycleRunning) {
		metrics.CyclesSkippedTotal.Inc()
		log.Println("Scheduler: previous cycle still running, skipping this tick")
	}
}

// TryRun invokes runFn synchronously if no run is in progress, otherwise
// returns ErrCycleRunning. Manual triggers share this guard with scheduled
// ticks.
func (s *Scheduler) TryRun(ctx context.Context) error {
	return s.tryRun(ctx, s.runFn)
}

// tryRun executes fn under the overlap guard. Callers that need to observe
// the run's outcome pass a closure so the result is captured while the guard
// is still held.
func (s *Scheduler) tryRun(ctx context.Context, fn func(context.Context)) error {
	if !s.runMu.TryLock() {
		return ErrCycleRunning
	}
	defer s.runMu.Unlock()

	fn(ctx)
	return nil
}

// Running reports whether a run is currently in progress.
func (s *Scheduler) Running() bool {
	if s.runMu.TryLock() {
		s.runMu.Unlock()
		return false
	}
	return true
}

// NextRun returns the next scheduled tick, or the zero time when the
// scheduler has not been started.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}
