package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/bondfyr/party-service/internal/service"
)

type Scheduler struct {
	payoutService service.PayoutService
	interval      time.Duration
}

func NewScheduler(payoutService service.PayoutService, interval time.Duration) *Scheduler {
	return &Scheduler{
		payoutService: payoutService,
		interval:      interval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.payoutService.RunPayouts(ctx, "scheduler"); err != nil {
				fmt.Printf("Error running payout batch: %v\n", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
