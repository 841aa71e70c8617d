package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/parkgolf/notify-backend/internal/deadletter"
	"github.com/parkgolf/notify-backend/internal/notifications"
	"go.uber.org/multierr"
)

// DLQSweepJob moves permanently failed notifications into the dead-letter
// queue. A single bad row does not abort the sweep; per-row errors are
// aggregated into the tick error.
type DLQSweepJob struct {
	store      notifications.Service
	deadLetter deadletter.Service
	batchLimit int
	claimLease time.Duration
	interval   time.Duration
}

// DLQSweepJobParams configure the sweep job.
type DLQSweepJobParams struct {
	Store      notifications.Service
	DeadLetter deadletter.Service
	BatchLimit int
	ClaimLease time.Duration
	Interval   time.Duration
}

// NewDLQSweepJob builds the sweep job.
func NewDLQSweepJob(params DLQSweepJobParams) (*DLQSweepJob, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("notification store required")
	}
	if params.DeadLetter == nil {
		return nil, fmt.Errorf("dead letter service required")
	}
	job := &DLQSweepJob{
		store:      params.Store,
		deadLetter: params.DeadLetter,
		batchLimit: params.BatchLimit,
		claimLease: params.ClaimLease,
		interval:   params.Interval,
	}
	if job.batchLimit <= 0 {
		job.batchLimit = 100
	}
	if job.claimLease <= 0 {
		job.claimLease = 2 * time.Minute
	}
	if job.interval <= 0 {
		job.interval = 5 * time.Minute
	}
	return job, nil
}

func (j *DLQSweepJob) Name() string { return "dlq-sweep" }

func (j *DLQSweepJob) Interval() time.Duration { return j.interval }

func (j *DLQSweepJob) Run(ctx context.Context) (int, error) {
	rows, err := j.store.PermanentlyFailed(ctx, j.batchLimit)
	if err != nil {
		return 0, err
	}

	processed := 0
	var sweepErr error
	for i := range rows {
		claimed, err := j.store.Claim(ctx, rows[i].ID, j.claimLease)
		if err != nil {
			sweepErr = multierr.Append(sweepErr, err)
			continue
		}
		if !claimed {
			continue
		}

		reason := fmt.Sprintf("max retries exceeded (%d)", rows[i].RetryCount)
		if err := j.deadLetter.Move(ctx, rows[i], reason); err != nil {
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("notification %d: %w", rows[i].ID, err))
			continue
		}
		processed++
	}
	return processed, sweepErr
}
