package scheduler

import (
	"context"
	"time"

	"medcrm_backend/platform/logger"
)

const (
	defaultExpiryInterval = 15 * time.Minute
	sweeperSource         = "sweeper"
)

// QuoteExpirySweeper periodically enqueues the quote expiry task.
type QuoteExpirySweeper struct {
	enqueuer ExpiryEnqueuer
	log      *logger.Logger
	interval time.Duration
}

func NewQuoteExpirySweeper(enqueuer ExpiryEnqueuer, log *logger.Logger, interval time.Duration) *QuoteExpirySweeper {
	if interval <= 0 {
		interval = defaultExpiryInterval
	}
	return &QuoteExpirySweeper{
		enqueuer: enqueuer,
		log:      log,
		interval: interval,
	}
}

// Run enqueues once immediately and then on every tick until ctx is done.
func (s *QuoteExpirySweeper) Run(ctx context.Context) {
	if s == nil || s.enqueuer == nil {
		return
	}

	s.enqueue(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueue(ctx)
		}
	}
}

func (s *QuoteExpirySweeper) enqueue(ctx context.Context) {
	if err := s.enqueuer.EnqueueExpireQuotes(ctx, sweeperSource); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("quote expiry enqueue failed", "error", err)
	}
}
