package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medcrm_backend/internal/adapters"
	"medcrm_backend/internal/adapters/storage"
	"medcrm_backend/internal/email"
	"medcrm_backend/internal/events"
	apphttp "medcrm_backend/internal/http"
	"medcrm_backend/internal/http/router"
	"medcrm_backend/internal/institutions"
	"medcrm_backend/internal/notification"
	"medcrm_backend/internal/pdf"
	"medcrm_backend/internal/permissions"
	"medcrm_backend/internal/quotes"
	quotesvc "medcrm_backend/internal/quotes/service"
	"medcrm_backend/internal/users"
	"medcrm_backend/migrations"
	"medcrm_backend/platform/config"
	"medcrm_backend/platform/db"
	"medcrm_backend/platform/i18n"
	"medcrm_backend/platform/logger"
	"medcrm_backend/platform/phone"
	"medcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.ObjectStore, bucket string) {
	if err := withRetry(ctx, log, "ensure "+bucket+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 3, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool, migrations.FS, ".")
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	format := i18n.NewFormatter(cfg.GetLocale(), cfg.GetCurrency())
	phones := phone.NewNormalizer(cfg.GetPhoneRegion())

	perms, err := permissions.Load()
	if err != nil {
		log.Error("failed to load permission table", "error", err)
		panic("failed to load permission table: " + err.Error())
	}

	var sender email.Sender = email.NoopSender{}
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg, email.NewRenderer(format))
		log.Info("smtp email sender initialized", "host", cfg.GetSMTPHost())
	} else {
		log.Warn("email disabled; quote notifications will not be emailed")
	}

	dependencies := map[string]apphttp.HealthChecker{}

	var pdfStore quotesvc.PDFStore
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, cfg.GetMinioBucketQuotePDFs())
		pdfStore = adapters.NewQuotesPDFStore(storageSvc, cfg.GetMinioBucketQuotePDFs())
		dependencies["minio"] = storageSvc
		log.Info("storage service initialized", "quotePDFsBucket", cfg.GetMinioBucketQuotePDFs())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; quote PDFs are rendered on every download")
	}

	var pdfRenderer quotesvc.PDFRenderer
	if cfg.IsGotenbergEnabled() {
		gotenberg := pdf.NewGotenbergClient(cfg.GetGotenbergURL(), cfg.GetGotenbergUsername(), cfg.GetGotenbergPassword())
		generator, err := pdf.NewGenerator(gotenberg, format)
		if err != nil {
			log.Error("failed to initialize PDF generator", "error", err)
			panic("failed to initialize PDF generator: " + err.Error())
		}
		pdfRenderer = adapters.NewQuotesPDFRenderer(generator, cfg.GetAppBaseURL())
		dependencies["gotenberg"] = gotenberg
		log.Info("gotenberg PDF generator initialized", "url", cfg.GetGotenbergURL())
	} else {
		log.Warn("GOTENBERG_URL not configured; quote PDF downloads disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	usersRepo := users.NewRepository(pool)
	institutionsModule := institutions.NewModule(pool, val, perms, phones, log)

	institutionReader := adapters.NewQuotesInstitutionReader(institutionsModule.Repository(), phones)
	userReader := adapters.NewQuotesUserReader(usersRepo)

	quotesModule := quotes.NewModule(pool, eventBus, val, perms, cfg, log, quotes.Deps{
		Institutions: institutionReader,
		Users:        userReader,
	})
	if pdfRenderer != nil {
		quotesModule.SetPDF(pdfRenderer, pdfStore)
	}

	notifDeps := notification.Deps{
		Users:        userReader,
		Institutions: institutionReader,
		Quotes:       quotesModule.Service(),
	}
	if pdfRenderer != nil {
		notifDeps.PDFs = quotesModule.Service()
	}
	notificationModule := notification.New(sender, notifDeps, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	app := &apphttp.App{
		Config:       cfg,
		Logger:       log,
		Health:       db.NewPoolAdapter(pool),
		Dependencies: dependencies,
		Modules: []apphttp.Module{
			institutionsModule,
			quotesModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}

	// Open notification streams would otherwise hold Shutdown until the timeout.
	notificationModule.Stream().Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	// Let emails triggered by the last requests go out.
	if err := eventBus.WaitContext(shutdownCtx); err != nil {
		log.Warn("notification handlers still running at exit", "error", err)
	}
	log.Info("server stopped")
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
