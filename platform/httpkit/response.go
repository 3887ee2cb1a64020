package httpkit

import (
	"net/http"

	"medcrm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created sends a 201 with the new resource.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest answers 400 BAD_REQUEST for input that could not be decoded.
func BadRequest(c *gin.Context, message string, details interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Code:    apperr.CodeBadRequest,
		Details: details,
	})
}

// ValidationFailed answers 400 VALIDATION_ERROR with per-field details.
func ValidationFailed(c *gin.Context, message string, details interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Code:    apperr.CodeValidation,
		Details: details,
	})
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values (also when wrapped) use their Kind for the status
// and expose their Code. Anything else is an unexpected failure: it is recorded
// on the gin context for the request logger and rendered as a 500.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := apperr.As(err); ok {
		if domainErr.Kind == apperr.KindInternal {
			_ = c.Error(err)
		}
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Code:    domainErr.Code,
			Details: domainErr.Details,
		})
		return true
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  apperr.CodeInternal,
	})
	return true
}
