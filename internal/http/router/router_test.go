package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "medcrm_backend/internal/http"
	"medcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerConfig struct{}

func (routerConfig) GetHTTPAddr() string        { return ":0" }
func (routerConfig) GetCORSAllowAll() bool      { return false }
func (routerConfig) GetCORSOrigins() []string   { return []string{"https://crm.example.com"} }
func (routerConfig) GetCORSAllowCreds() bool    { return true }
func (routerConfig) GetRateLimitPerMinute() int { return 600 }
func (routerConfig) GetJWTAccessSecret() string { return "test-secret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{ registered bool }

func (m *echoModule) Name() string { return "echo" }

func (m *echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.registered = true
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "public") })
	ctx.Protected.GET("/secret", func(c *gin.Context) { c.String(http.StatusOK, "secret") })
	ctx.Admin.GET("/things", func(c *gin.Context) { c.String(http.StatusOK, "admin") })
}

func newTestRouter(health apphttp.HealthChecker, deps map[string]apphttp.HealthChecker) (*gin.Engine, *echoModule) {
	gin.SetMode(gin.TestMode)
	mod := &echoModule{}
	engine := New(&apphttp.App{
		Config:       routerConfig{},
		Logger:       logger.Nop(),
		Health:       health,
		Dependencies: deps,
		Modules:      []apphttp.Module{mod},
	})
	return engine, mod
}

func do(engine *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndModules(t *testing.T) {
	engine, mod := newTestRouter(pinger{}, nil)
	assert.True(t, mod.registered)

	rec := do(engine, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(engine, http.MethodGet, "/api/v1/echo", map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine, _ := newTestRouter(pinger{}, nil)

	assert.Equal(t, http.StatusUnauthorized, do(engine, http.MethodGet, "/api/v1/secret", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(engine, http.MethodGet, "/api/v1/admin/things", nil).Code)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	engine, _ := newTestRouter(pinger{}, nil)

	rec := do(engine, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		health     apphttp.HealthChecker
		deps       map[string]apphttp.HealthChecker
		wantStatus int
		wantState  string
	}{
		{"all up", pinger{}, map[string]apphttp.HealthChecker{"gotenberg": pinger{}}, http.StatusOK, "ready"},
		{"optional down", pinger{}, map[string]apphttp.HealthChecker{"gotenberg": pinger{err: errors.New("down")}}, http.StatusOK, "degraded"},
		{"database down", pinger{err: errors.New("down")}, nil, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestRouter(tt.health, tt.deps)

			rec := do(engine, http.MethodGet, "/api/ready", nil)
			require.Equal(t, tt.wantStatus, rec.Code)

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantState, body.Status)
			assert.Contains(t, body.Checks, "database")
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	engine, _ := newTestRouter(pinger{}, nil)

	rec := do(engine, http.MethodOptions, "/api/v1/echo", map[string]string{
		"Origin":                        "https://crm.example.com",
		"Access-Control-Request-Method": "PATCH",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://crm.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
