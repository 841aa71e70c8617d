package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/parkgolf/notify-backend/internal/deadletter"
)

// DLQCleanupJob drops quarantined rows older than the retention window.
type DLQCleanupJob struct {
	deadLetter    deadletter.Service
	retentionDays int
	interval      time.Duration
}

// DLQCleanupJobParams configure the cleanup job.
type DLQCleanupJobParams struct {
	DeadLetter    deadletter.Service
	RetentionDays int
	Interval      time.Duration
}

// NewDLQCleanupJob builds the cleanup job.
func NewDLQCleanupJob(params DLQCleanupJobParams) (*DLQCleanupJob, error) {
	if params.DeadLetter == nil {
		return nil, fmt.Errorf("dead letter service required")
	}
	job := &DLQCleanupJob{
		deadLetter:    params.DeadLetter,
		retentionDays: params.RetentionDays,
		interval:      params.Interval,
	}
	if job.retentionDays <= 0 {
		job.retentionDays = deadletter.DefaultRetentionDays
	}
	if job.interval <= 0 {
		job.interval = 24 * time.Hour
	}
	return job, nil
}

func (j *DLQCleanupJob) Name() string { return "dlq-cleanup" }

func (j *DLQCleanupJob) Interval() time.Duration { return j.interval }

func (j *DLQCleanupJob) Run(ctx context.Context) (int, error) {
	deleted, err := j.deadLetter.Cleanup(ctx, j.retentionDays)
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}
