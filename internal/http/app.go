// Package http defines what the composition root hands to the router: the
// assembled modules plus the probes behind /api/ready.
package http

import (
	"context"

	"medcrm_backend/platform/config"
	"medcrm_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is anything /api/ready can ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is built by cmd/api and consumed by router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is the database probe. Its failure makes the API unavailable.
	Health HealthChecker
	// Dependencies are optional services keyed by name ("gotenberg").
	// A failing one only degrades readiness.
	Dependencies map[string]HealthChecker
	Modules      []Module
}
