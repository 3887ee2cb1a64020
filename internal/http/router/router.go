// Package router assembles the gin engine from the application's modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "medcrm_backend/internal/http"
	"medcrm_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 3 * time.Second

// AdminRoles may reach /api/v1/admin.
var AdminRoles = []string{"admin", "super_admin"}

// New builds the engine: global middleware, health probes, the /api/v1
// groups and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(httpkit.Recovery(app.Logger))
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", readiness(app))

	v1 := engine.Group("/api/v1")
	v1.Use(httpkit.NewPerMinuteRateLimiter(app.Config.GetRateLimitPerMinute(), app.Logger).RateLimit())

	protected := v1.Group("", httpkit.AuthRequired(app.Config))
	admin := protected.Group("/admin", httpkit.RequireAnyRole(AdminRoles...))

	rc := &apphttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: protected,
		Admin:     admin,
	}
	for _, m := range app.Modules {
		m.RegisterRoutes(rc)
		app.Logger.Info("module routes registered", "module", m.Name())
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httpkit.ErrorResponse{Error: "route not found", Code: "NOT_FOUND"})
	})

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpkit.HeaderRequestID},
		ExposeHeaders:    []string{httpkit.HeaderRequestID, "Content-Disposition"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	return corsCfg
}

// readiness pings the database and every optional dependency concurrently.
// The database failing makes the service unready; anything else only degrades it.
func readiness(app *apphttp.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(app.Dependencies)+1)
		results := make([]error, len(app.Dependencies)+1)
		names := make([]string, 0, len(app.Dependencies)+1)
		targets := make([]apphttp.HealthChecker, 0, len(app.Dependencies)+1)

		if app.Health != nil {
			names = append(names, "database")
			targets = append(targets, app.Health)
		}
		for name, dep := range app.Dependencies {
			names = append(names, name)
			targets = append(targets, dep)
		}

		var g errgroup.Group
		for i := range targets {
			g.Go(func() error {
				results[i] = targets[i].Ping(ctx)
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		overall := "ready"
		for i, name := range names {
			if results[i] == nil {
				checks[name] = "ok"
				continue
			}
			checks[name] = "unavailable"
			app.Logger.WithContext(ctx).Warn("readiness check failed", "check", name, "error", results[i])
			if name == "database" {
				status = http.StatusServiceUnavailable
				overall = "unavailable"
			} else if overall == "ready" {
				overall = "degraded"
			}
		}

		c.JSON(status, gin.H{"status": overall, "checks": checks})
	}
}
