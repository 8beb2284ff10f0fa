package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingJobs struct {
	reconciles atomic.Int32
	sweeps     atomic.Int32
	failFirst  bool
}

func (j *countingJobs) ReconcileAll(context.Context) (int64, int64, error) {
	if j.reconciles.Add(1) == 1 && j.failFirst {
		return 0, 0, errors.New("connection reset")
	}
	return 2, 1, nil
}

func (j *countingJobs) SweepOverdue(context.Context) (int64, error) {
	j.sweeps.Add(1)
	return 1, nil
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	jobs := &countingJobs{}
	s := NewScheduler(jobs, jobs, time.Hour, zap.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return jobs.sweeps.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.Equal(t, int32(1), jobs.reconciles.Load())
}

func TestScheduler_Ticks(t *testing.T) {
	jobs := &countingJobs{}
	s := NewScheduler(jobs, jobs, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return jobs.reconciles.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	s.Stop()
}

func TestScheduler_FailingJobDoesNotStopOthers(t *testing.T) {
	jobs := &countingJobs{failFirst: true}
	s := NewScheduler(jobs, jobs, time.Hour, zap.NewNop())

	s.RunOnce(context.Background())

	assert.Equal(t, int32(1), jobs.reconciles.Load())
	assert.Equal(t, int32(1), jobs.sweeps.Load())
}
