package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/pkg/db/models"
)

// RetryFailedJob re-attempts FAILED notifications whose backoff window has
// elapsed.
type RetryFailedJob struct {
	store       notifications.Service
	coordinator Deliverer
	batchLimit  int
	claimLease  time.Duration
	interval    time.Duration
	workers     int
}

// RetryFailedJobParams configure the retry job.
type RetryFailedJobParams struct {
	Store       notifications.Service
	Coordinator Deliverer
	BatchLimit  int
	ClaimLease  time.Duration
	Interval    time.Duration
	Workers     int
}

// NewRetryFailedJob builds the retry job.
func NewRetryFailedJob(params RetryFailedJobParams) (*RetryFailedJob, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("notification store required")
	}
	if params.Coordinator == nil {
		return nil, fmt.Errorf("delivery coordinator required")
	}
	job := &RetryFailedJob{
		store:       params.Store,
		coordinator: params.Coordinator,
		batchLimit:  params.BatchLimit,
		claimLease:  params.ClaimLease,
		interval:    params.Interval,
		workers:     params.Workers,
	}
	if job.batchLimit <= 0 {
		job.batchLimit = 100
	}
	if job.claimLease <= 0 {
		job.claimLease = 2 * time.Minute
	}
	if job.interval <= 0 {
		job.interval = time.Minute
	}
	if job.workers <= 0 {
		job.workers = 1
	}
	return job, nil
}

func (j *RetryFailedJob) Name() string { return "retry-failed" }

func (j *RetryFailedJob) Interval() time.Duration { return j.interval }

func (j *RetryFailedJob) Run(ctx context.Context) (int, error) {
	rows, err := j.store.RetryEligible(ctx, j.batchLimit)
	if err != nil {
		return 0, err
	}

	claimed := make([]*models.Notification, 0, len(rows))
	for i := range rows {
		ok, err := j.store.Claim(ctx, rows[i].ID, j.claimLease)
		if err != nil {
			deliverClaimed(ctx, j.coordinator, claimed, j.workers)
			return len(claimed), err
		}
		if !ok {
			continue
		}
		claimed = append(claimed, &rows[i])
	}

	deliverClaimed(ctx, j.coordinator, claimed, j.workers)
	return len(claimed), nil
}
