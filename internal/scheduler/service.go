package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/parkgolf/notify-backend/pkg/logger"
	"github.com/parkgolf/notify-backend/pkg/metrics"
)

// LockFactory builds the run lock for a named job. A nil factory disables
// cross-instance locking.
type LockFactory func(jobName string) (Lock, error)

// ServiceParams configure the scheduler service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  *metrics.SchedulerTickMetrics
	NewLock  LockFactory
}

// Service runs every registered job on its own cadence, one goroutine per
// job. A panicking job is recovered and counted as a failed tick without
// touching the other jobs.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	metrics  *metrics.SchedulerTickMetrics
	newLock  LockFactory
}

// NewService builds a scheduler service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		metrics:  params.Metrics,
		newLock:  params.NewLock,
	}, nil
}

// Run starts all job loops and blocks until the context is canceled and
// in-flight ticks have drained.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	for _, job := range s.registry.Jobs() {
		lock, err := s.lockFor(job.Name())
		if err != nil {
			return fmt.Errorf("building lock for %s: %w", job.Name(), err)
		}

		wg.Add(1)
		go func(job Job, lock Lock) {
			defer wg.Done()
			s.runLoop(ctx, job, lock)
		}(job, lock)
	}

	<-ctx.Done()
	s.logg.Info(ctx, "scheduler stopping, draining ticks")
	wg.Wait()
	s.logg.Info(ctx, "scheduler stopped")
	return ctx.Err()
}

func (s *Service) lockFor(jobName string) (Lock, error) {
	if s.newLock == nil {
		return nil, nil
	}
	return s.newLock(jobName)
}

func (s *Service) runLoop(ctx context.Context, job Job, lock Lock) {
	s.runTick(ctx, job, lock)

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTick(ctx, job, lock)
		}
	}
}

func (s *Service) runTick(ctx context.Context, job Job, lock Lock) {
	tickCtx := s.logg.WithField(ctx, "job", job.Name())

	defer func() {
		if recovered := recover(); recovered != nil {
			s.logg.Error(tickCtx, "job panicked", fmt.Errorf("panic: %v", recovered))
			s.recordFailure(job.Name())
		}
	}()

	if lock != nil {
		locked, err := lock.Acquire(tickCtx)
		if err != nil {
			s.logg.Error(tickCtx, "lock acquire failed", err)
			s.recordFailure(job.Name())
			return
		}
		if !locked {
			s.logg.Info(tickCtx, "another instance holds the job lock, skipping tick")
			return
		}
		defer func() {
			if err := lock.Release(tickCtx); err != nil {
				s.logg.Error(tickCtx, "lock release failed", err)
			}
		}()
	}

	start := time.Now()
	processed, err := job.Run(tickCtx)
	duration := time.Since(start)

	s.observeDuration(job.Name(), duration)
	s.addProcessed(job.Name(), processed)
	tickCtx = s.logg.WithFields(tickCtx, map[string]any{
		"duration_ms": duration.Milliseconds(),
		"processed":   processed,
	})
	if err != nil {
		s.logg.Error(tickCtx, "tick failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Info(tickCtx, "tick completed")
	s.recordSuccess(job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) addProcessed(job string, count int) {
	if s.metrics == nil || count <= 0 {
		return
	}
	s.metrics.AddProcessed(job, count)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
