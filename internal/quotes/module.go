// Package quotes provides the quotes domain module: quotes, their lines,
// lifecycle transitions and PDF rendering.
package quotes

import (
	"medcrm_backend/internal/events"
	apphttp "medcrm_backend/internal/http"
	"medcrm_backend/internal/permissions"
	"medcrm_backend/internal/quotes/handler"
	"medcrm_backend/internal/quotes/repository"
	"medcrm_backend/internal/quotes/service"
	"medcrm_backend/platform/config"
	"medcrm_backend/platform/logger"
	"medcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// Deps groups the collaborators the quotes module reads from other modules.
type Deps struct {
	Institutions service.InstitutionReader
	Users        service.UserReader
}

// NewModule creates a new quotes module with all dependencies wired
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, perms *permissions.Table, cfg config.QuoteConfig, log *logger.Logger, deps Deps) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, deps.Institutions, deps.Users, eventBus, log)
	svc.SetNumberRetries(cfg.GetQuoteNumberRetries())

	return &Module{
		handler: handler.New(svc, val, perms),
		service: svc,
	}
}

// SetPDF injects the renderer and the optional object store for quote PDFs.
func (m *Module) SetPDF(renderer service.PDFRenderer, store service.PDFStore) {
	m.service.SetPDF(renderer, store)
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/quotes"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
