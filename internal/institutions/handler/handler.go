package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medcrm_backend/internal/institutions/service"
	"medcrm_backend/internal/institutions/transport"
	"medcrm_backend/platform/httpkit"
	"medcrm_backend/platform/validator"
)

// Handler handles HTTP requests for institutions.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid institution ID"
)

// New creates a new institutions handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves a page of institutions.
// GET /api/v1/institutions
func (h *Handler) List(c *gin.Context) {
	var req transport.ListInstitutionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationFailed(c, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves an institution by ID.
// GET /api/v1/institutions/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create adds an institution.
// POST /api/v1/institutions
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationFailed(c, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}
