package permissions

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"medcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTable(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"admin", "sales_manager", "sales_rep", "super_admin", "viewer"}, table.Roles())
	assert.True(t, table.Can("super_admin", QuotesExpire))
	assert.True(t, table.Can("admin", QuotesExpire))
	assert.False(t, table.Can("sales_rep", QuotesExpire))
	assert.True(t, table.Can("sales_rep", QuotesCreate))
	assert.False(t, table.Can("viewer", QuotesCreate))
	assert.True(t, table.Can("viewer", QuotesRead))
	assert.False(t, table.Can("intern", QuotesRead))
}

func TestParseRejectsEmptyTable(t *testing.T) {
	_, err := Parse([]byte("roles: {}\n"))
	require.Error(t, err)

	_, err = Parse([]byte("roles: [nope"))
	require.Error(t, err)
}

func TestRequire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	table, err := Load()
	require.NoError(t, err)

	serve := func(roles []string) int {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if roles != nil {
				httpkit.SetIdentity(c, httpkit.Identity{UserID: uuid.New(), Roles: roles})
			}
			c.Next()
		})
		r.POST("/quotes", Require(table, QuotesCreate), func(c *gin.Context) { c.Status(http.StatusCreated) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/quotes", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, serve([]string{"sales_rep"}))
	assert.Equal(t, http.StatusCreated, serve([]string{"viewer", "sales_manager"}))
	assert.Equal(t, http.StatusForbidden, serve([]string{"viewer"}))
	assert.Equal(t, http.StatusForbidden, serve(nil))
}
