package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InstanceReconciler keeps recurring class occurrences in line with their
// templates.
type InstanceReconciler interface {
	ReconcileAll(ctx context.Context) (created, deleted int64, err error)
}

// OverdueSweeper flips sent invoices past their due date to overdue.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// Scheduler runs the background jobs.
type Scheduler struct {
	classes  InstanceReconciler
	invoices OverdueSweeper
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(classes InstanceReconciler, invoices OverdueSweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		classes:  classes,
		invoices: invoices,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs every job once and then on each tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop ends the loop and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("Background scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Background scheduler cancelled")
			return
		}
	}
}

// RunOnce runs each job a single time. A failing job does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	created, deleted, err := s.classes.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error("Failed to reconcile class instances", zap.Error(err))
	} else {
		s.logger.Info("Class instances reconciled",
			zap.Int64("created", created),
			zap.Int64("deleted", deleted))
	}

	overdue, err := s.invoices.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("Failed to mark overdue invoices", zap.Error(err))
		return
	}
	if overdue > 0 {
		s.logger.Info("Invoices marked overdue", zap.Int64("count", overdue))
	}
}
