package httpkit

import (
	"errors"
	"net/http"
	"strings"

	"medcrm_backend/platform/config"
	"medcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	errMissingToken = "missing token"
	errInvalidToken = "invalid token"

	tokenTypeAccess = "access"
)

// AccessClaims is the payload of access tokens minted by the identity provider.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
	Type  string   `json:"type"`
}

// AuthRequired validates the bearer access token and stores the caller's
// Identity on the request.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	secret := []byte(cfg.GetJWTAccessSecret())
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))

	return func(c *gin.Context) {
		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		id, err := parseAccessToken(parser, secret, rawToken)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		SetIdentity(c, id)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), id.UserID.String()))
		c.Next()
	}
}

// RequireAnyRole lets the request through when the user holds one of roles.
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok || !id.HasAnyRole(roles...) {
			AbortForbidden(c)
			return
		}
		c.Next()
	}
}

func parseAccessToken(parser *jwt.Parser, secret []byte, rawToken string) (Identity, error) {
	var claims AccessClaims
	_, err := parser.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if claims.Type != tokenTypeAccess {
		return Identity{}, errors.New("not an access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return Identity{}, errors.New("invalid subject")
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	return Identity{UserID: userID, Email: claims.Email, Roles: roles}, nil
}

func extractBearerToken(authHeader string) (string, bool) {
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message, Code: "UNAUTHORIZED"})
}

// AbortForbidden stops the chain with a 403 INSUFFICIENT_PERMISSIONS body.
func AbortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Code: "INSUFFICIENT_PERMISSIONS"})
}
