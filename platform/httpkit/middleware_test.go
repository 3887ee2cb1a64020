package httpkit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medcrm_backend/platform/apperr"
	"medcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return "test-secret" }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	return engine
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	userID := uuid.New()
	engine := newTestEngine()
	engine.GET("/me", AuthRequired(testJWTConfig{}), func(c *gin.Context) {
		id, ok := MustGetIdentity(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.UserID.String(), "email": id.Email, "admin": id.HasRole("admin")})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "camille@example.com",
		"roles": []string{"admin"},
		"type":  "access",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())
	assert.Contains(t, rec.Body.String(), `"admin":true`)
	assert.Contains(t, rec.Body.String(), "camille@example.com")
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestAuthRequiredRejectsRefreshTokens(t *testing.T) {
	engine := newTestEngine()
	engine.GET("/me", AuthRequired(testJWTConfig{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "refresh",
	}))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAnyRole(t *testing.T) {
	engine := newTestEngine()
	engine.GET("/admin",
		func(c *gin.Context) {
			SetIdentity(c, Identity{UserID: uuid.New(), Roles: []string{"sales_rep"}})
		},
		RequireAnyRole("admin", "super_admin"),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_PERMISSIONS")
}

func TestHandleErrorRendersCode(t *testing.T) {
	engine := newTestEngine()
	engine.GET("/typed", func(c *gin.Context) {
		HandleError(c, apperr.NotFound("quote not found").WithCode("QUOTE_NOT_FOUND"))
	})
	engine.GET("/untyped", func(c *gin.Context) {
		HandleError(c, errors.New("connection reset"))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/typed", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"quote not found","code":"QUOTE_NOT_FOUND"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/untyped", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	engine := newTestEngine()
	engine.GET("/me", AuthRequired(testJWTConfig{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	expired := signToken(t, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "access",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})
	badSubject := signToken(t, jwt.MapClaims{"sub": "not-a-uuid", "type": "access"})
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": uuid.NewString(), "type": "access"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty bearer", header: "Bearer   "},
		{name: "expired", header: "Bearer " + expired},
		{name: "bad subject", header: "Bearer " + badSubject},
		{name: "alg none", header: "Bearer " + unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestRequestIDEchoesSaneHeader(t *testing.T) {
	engine := newTestEngine()
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", maxRequestIDLength+1))
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	_, err := uuid.Parse(rec.Header().Get(HeaderRequestID))
	assert.NoError(t, err)
}

func TestRecoveryRendersInternalError(t *testing.T) {
	engine := newTestEngine()
	engine.Use(Recovery(logger.Nop()))
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":"INTERNAL_ERROR"}`, rec.Body.String())
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := NewPerMinuteRateLimiter(2, logger.Nop())
	engine := newTestEngine()
	engine.Use(limiter.RateLimit())
	engine.GET("/quotes", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/quotes", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	limited := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2").Code)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	limiter := NewPerMinuteRateLimiter(10, nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.size())

	now = now.Add(limiterIdleTTL + time.Minute)
	assert.True(t, limiter.Allow("10.0.0.3"))
	assert.Equal(t, 1, limiter.size())
}

func TestValidationFailedBody(t *testing.T) {
	engine := newTestEngine()
	engine.POST("/quotes", func(c *gin.Context) {
		ValidationFailed(c, "validation failed", map[string]string{"title": "required"})
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quotes", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation failed","code":"VALIDATION_ERROR","details":{"title":"required"}}`, rec.Body.String())
}
