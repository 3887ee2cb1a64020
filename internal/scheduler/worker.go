package scheduler

import (
	"context"
	"fmt"
	"time"

	"medcrm_backend/platform/config"
	"medcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency    = 10
	workerShutdownTimeout = 30 * time.Second
)

// QuoteExpirer is implemented by the quotes service.
type QuoteExpirer interface {
	MarkExpiredQuotes(ctx context.Context) (int64, error)
}

// Worker consumes the scheduler queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	quotes QuoteExpirer
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, quotes QuoteExpirer, log *logger.Logger) (*Worker, error) {
	s, err := loadSettings(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	w := &Worker{quotes: quotes, log: log}
	w.server = asynq.NewServer(s.redis, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{s.queue: 1},
		ShutdownTimeout: workerShutdownTimeout,
		ErrorHandler:    asynq.ErrorHandlerFunc(w.reportFailure),
	})
	w.mux = w.routes()
	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskExpireQuotes, w.handleExpireQuotes)
	return mux
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("scheduler worker start: %w", err)
	}

	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// handleExpireQuotes runs one sweep. The quotes service publishes
// QuotesExpired itself when something changed.
func (w *Worker) handleExpireQuotes(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseExpireQuotesPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	count, err := w.quotes.MarkExpiredQuotes(ctx)
	if err != nil {
		return fmt.Errorf("expire quotes: %w", err)
	}

	w.log.JobCompleted(TaskExpireQuotes, count)
	if count > 0 {
		w.log.Info("quotes expired", "count", count, "source", payload.Source)
	}
	return nil
}

// reportFailure logs every failed attempt with its retry position.
func (w *Worker) reportFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	w.log.Error("scheduler task failed",
		"task", task.Type(),
		"retry", retried,
		"maxRetry", maxRetry,
		"error", err,
	)
}
