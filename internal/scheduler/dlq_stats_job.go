package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/parkgolf/notify-backend/internal/deadletter"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

// DLQStatsJob logs a periodic summary of the dead-letter queue.
type DLQStatsJob struct {
	deadLetter deadletter.Service
	logg       *logger.Logger
	interval   time.Duration
}

// DLQStatsJobParams configure the stats job.
type DLQStatsJobParams struct {
	DeadLetter deadletter.Service
	Logger     *logger.Logger
	Interval   time.Duration
}

// NewDLQStatsJob builds the stats job.
func NewDLQStatsJob(params DLQStatsJobParams) (*DLQStatsJob, error) {
	if params.DeadLetter == nil {
		return nil, fmt.Errorf("dead letter service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	job := &DLQStatsJob{
		deadLetter: params.DeadLetter,
		logg:       params.Logger,
		interval:   params.Interval,
	}
	if job.interval <= 0 {
		job.interval = time.Hour
	}
	return job, nil
}

func (j *DLQStatsJob) Name() string { return "dlq-stats" }

func (j *DLQStatsJob) Interval() time.Duration { return j.interval }

func (j *DLQStatsJob) Run(ctx context.Context) (int, error) {
	stats, err := j.deadLetter.Stats(ctx)
	if err != nil {
		return 0, err
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"total":    stats.Total,
		"by_type":  stats.ByType,
		"last_24h": stats.Last24h,
		"last_7d":  stats.Last7d,
	})
	j.logg.Info(ctx, "dead letter queue summary")
	return 0, nil
}
