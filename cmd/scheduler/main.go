package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medcrm_backend/internal/adapters"
	"medcrm_backend/internal/email"
	"medcrm_backend/internal/events"
	institutionrepo "medcrm_backend/internal/institutions/repository"
	"medcrm_backend/internal/notification"
	quoterepo "medcrm_backend/internal/quotes/repository"
	quotesvc "medcrm_backend/internal/quotes/service"
	"medcrm_backend/internal/scheduler"
	"medcrm_backend/internal/users"
	"medcrm_backend/platform/config"
	"medcrm_backend/platform/db"
	"medcrm_backend/platform/i18n"
	"medcrm_backend/platform/logger"
	"medcrm_backend/platform/phone"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const drainTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "interval", cfg.GetQuoteExpiryInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	phones := phone.NewNormalizer(cfg.GetPhoneRegion())

	var sender email.Sender = email.NoopSender{}
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg, email.NewRenderer(i18n.NewFormatter(cfg.GetLocale(), cfg.GetCurrency())))
	}

	institutionReader := adapters.NewQuotesInstitutionReader(institutionrepo.New(pool), phones)
	userReader := adapters.NewQuotesUserReader(users.NewRepository(pool))

	quotes := quotesvc.New(quoterepo.New(pool), institutionReader, userReader, eventBus, log)

	// Expiry digests are emailed from here. Live streams belong to the API
	// process and do not see these events.
	notificationModule := notification.New(sender, notification.Deps{
		Users:        userReader,
		Institutions: institutionReader,
		Quotes:       quotes,
	}, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() {
		_ = client.Close()
	}()

	worker, err := scheduler.NewWorker(cfg, quotes, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	sweeper := scheduler.NewQuoteExpirySweeper(client, log, cfg.GetQuoteExpiryInterval())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})

	runErr := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := eventBus.WaitContext(drainCtx); err != nil {
		log.Warn("expiry digests still sending at exit", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("scheduler stopped with error", "error", runErr)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
