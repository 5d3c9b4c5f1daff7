package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewSchedulerRejectsInvalidExpression(t *testing.T) {
	if _, err := NewScheduler("not a cron expression", func(context.Context) {}); err == nil {
		t.Fatal("Expected error for invalid cron expression")
	}
}

func TestTryRunSkipsWhileRunning(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var runs int32

	s, err := NewScheduler("0 0 * * *", func(context.Context) {
		runs++
		started <- struct{}{}
		if runs == 1 {
			<-release
		}
	})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.TryRun(context.Background()); err != nil {
			t.Errorf("First run should proceed, got %v", err)
		}
	}()

	<-started
	if !s.Running() {
		t.Error("Running should report true while a run is in flight")
	}

	// A second invocation while the first has not returned must be refused,
	// not queued
	if err := s.TryRun(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("Expected ErrCycleRunning, got %v", err)
	}

	close(release)
	wg.Wait()

	if s.Running() {
		t.Error("Running should report false after the run returns")
	}

	// Once released, the guard opens again
	if err := s.TryRun(context.Background()); err != nil {
		t.Errorf("Run after completion should proceed, got %v", err)
	}
	if runs != 2 {
		t.Errorf("Expected 2 completed runs, got %d", runs)
	}
}

func TestSchedulerNextRun(t *testing.T) {
	s, err := NewScheduler("* * * * *", func(context.Context) {})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	if !s.NextRun().IsZero() {
		t.Error("NextRun should be zero before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	next := s.NextRun()
	if next.IsZero() {
		t.Fatal("NextRun should be set after Start")
	}
	if until := time.Until(next); until <= 0 || until > time.Minute {
		t.Errorf("Next run of a minutely schedule should be within a minute, got %v", until)
	}
}
