package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parkgolf/notify-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type countingJob struct {
	name     string
	interval time.Duration
	runs     atomic.Int64
	panics   bool
}

func (j *countingJob) Name() string            { return j.name }
func (j *countingJob) Interval() time.Duration { return j.interval }

func (j *countingJob) Run(ctx context.Context) (int, error) {
	j.runs.Add(1)
	if j.panics {
		panic("job blew up")
	}
	return 1, nil
}

type staticLock struct {
	acquired bool
}

func (l *staticLock) Acquire(ctx context.Context) (bool, error) { return l.acquired, nil }
func (l *staticLock) Release(ctx context.Context) error         { return nil }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestRunExecutesAllJobsAndStopsOnCancel(t *testing.T) {
	first := &countingJob{name: "first", interval: 10 * time.Millisecond}
	second := &countingJob{name: "second", interval: 10 * time.Millisecond}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second),
	})
	if err != nil {
		t.Fatalf("unexpected service constructor error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not drain after cancel")
	}

	if first.runs.Load() < 2 || second.runs.Load() < 2 {
		t.Fatalf("expected repeated ticks, got first=%d second=%d", first.runs.Load(), second.runs.Load())
	}
}

func TestPanickingJobDoesNotStopOthers(t *testing.T) {
	broken := &countingJob{name: "broken", interval: 10 * time.Millisecond, panics: true}
	healthy := &countingJob{name: "healthy", interval: 10 * time.Millisecond}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(broken, healthy),
	})
	if err != nil {
		t.Fatalf("unexpected service constructor error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	if broken.runs.Load() < 2 {
		t.Fatalf("expected panicking job to keep ticking, got %d", broken.runs.Load())
	}
	if healthy.runs.Load() < 2 {
		t.Fatalf("expected healthy job unaffected, got %d", healthy.runs.Load())
	}
}

func TestTickSkippedWhenLockHeldElsewhere(t *testing.T) {
	job := &countingJob{name: "locked-out", interval: 10 * time.Millisecond}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		NewLock: func(jobName string) (Lock, error) {
			return &staticLock{acquired: false}, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected service constructor error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	if job.runs.Load() != 0 {
		t.Fatalf("expected zero runs while lock is held elsewhere, got %d", job.runs.Load())
	}
}
