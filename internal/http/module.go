package http

import (
	"github.com/gin-gonic/gin"
)

// Module is a feature package that mounts its own routes. The router only
// knows this interface.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext hands modules the groups they may mount on. Every group
// already carries request ID, logging, CORS and rate limiting.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind a valid access token.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin, restricted to admin roles.
	Admin *gin.RouterGroup
}
