package scheduler

import (
	"context"
	"sync"

	"github.com/parkgolf/notify-backend/pkg/db/models"
)

// deliverClaimed fans claimed rows out to a bounded pool of workers. A pool
// of one degrades to a plain sequential loop.
func deliverClaimed(ctx context.Context, deliverer Deliverer, rows []*models.Notification, workers int) {
	if workers <= 1 || len(rows) <= 1 {
		for _, row := range rows {
			deliverer.Deliver(ctx, row)
		}
		return
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	work := make(chan *models.Notification)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range work {
				deliverer.Deliver(ctx, row)
			}
		}()
	}
	for _, row := range rows {
		work <- row
	}
	close(work)
	wg.Wait()
}
