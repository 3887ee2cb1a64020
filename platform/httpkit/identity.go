package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const contextIdentityKey = "httpkit.identity"

// Identity is the authenticated CRM user behind a request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

// HasRole reports whether the user holds role.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (i Identity) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, i.HasRole)
}

// SetIdentity attaches id to the request. AuthRequired calls it; tests use it
// to stand in for a signed token.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(contextIdentityKey, id)
}

// GetIdentity returns the identity set by AuthRequired.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(contextIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}

// MustGetIdentity is GetIdentity that answers 401 when nobody is signed in.
func MustGetIdentity(c *gin.Context) (Identity, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: "UNAUTHORIZED"})
	}
	return id, ok
}
