// Package institutions provides the medical institutions bounded context module.
// Quotes are always addressed to an institution from this module.
package institutions

import (
	apphttp "medcrm_backend/internal/http"
	"medcrm_backend/internal/institutions/handler"
	"medcrm_backend/internal/institutions/repository"
	"medcrm_backend/internal/institutions/service"
	"medcrm_backend/internal/permissions"
	"medcrm_backend/platform/logger"
	"medcrm_backend/platform/phone"
	"medcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the institutions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
	perms   *permissions.Table
}

// NewModule creates and initializes the institutions module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, perms *permissions.Table, phones *phone.Normalizer, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, phones, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
		perms:   perms,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "institutions"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module readers.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts institution routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/institutions")
	group.GET("", permissions.Require(m.perms, permissions.InstitutionsRead), m.handler.List)
	group.GET("/:id", permissions.Require(m.perms, permissions.InstitutionsRead), m.handler.GetByID)
	group.POST("", permissions.Require(m.perms, permissions.InstitutionsCreate), m.handler.Create)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
