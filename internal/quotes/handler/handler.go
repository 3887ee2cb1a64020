package handler

import (
	"medcrm_backend/internal/permissions"
	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/internal/quotes/service"
	"medcrm_backend/internal/quotes/transport"
	"medcrm_backend/platform/httpkit"
	"medcrm_backend/platform/sanitize"
	"medcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for quotes
type Handler struct {
	svc   *service.Service
	val   *validator.Validator
	perms *permissions.Table
}

// New creates a new quotes handler
func New(svc *service.Service, val *validator.Validator, perms *permissions.Table) *Handler {
	return &Handler{svc: svc, val: val, perms: perms}
}

// RegisterRoutes registers the quote routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	can := func(p permissions.Permission) gin.HandlerFunc { return permissions.Require(h.perms, p) }

	rg.GET("", can(permissions.QuotesRead), h.List)
	rg.POST("", can(permissions.QuotesCreate), h.Create)
	rg.POST("/calculate", can(permissions.QuotesRead), h.PreviewCalculation)
	rg.GET("/statistics", can(permissions.QuotesStatistics), h.Statistics)
	rg.GET("/:id", can(permissions.QuotesRead), h.GetByID)
	rg.PATCH("/:id", can(permissions.QuotesUpdate), h.Update)
	rg.DELETE("/:id", can(permissions.QuotesDelete), h.Delete)
	rg.POST("/:id/send", can(permissions.QuotesSend), h.Send)
	rg.POST("/:id/accept", can(permissions.QuotesDecide), h.Accept)
	rg.POST("/:id/reject", can(permissions.QuotesDecide), h.Reject)
	rg.POST("/:id/cancel", can(permissions.QuotesCancel), h.Cancel)
	rg.GET("/:id/pdf", can(permissions.QuotesPDF), h.DownloadPDF)
	rg.GET("/:id/lines", can(permissions.QuotesRead), h.ListLines)
	rg.POST("/:id/lines", can(permissions.QuotesUpdate), h.AddLine)
	rg.PUT("/:id/lines/order", can(permissions.QuotesUpdate), h.ReorderLines)
	rg.PATCH("/:id/lines/:lineId", can(permissions.QuotesUpdate), h.UpdateLine)
	rg.DELETE("/:id/lines/:lineId", can(permissions.QuotesUpdate), h.DeleteLine)
}

// RegisterAdminRoutes registers maintenance routes under the admin group
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes/expire", permissions.Require(h.perms, permissions.QuotesExpire), h.ExpireQuotes)
}

// bind decodes and validates a JSON body, writing the 400 itself on failure.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationFailed(c, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// List handles GET /api/v1/quotes
func (h *Handler) List(c *gin.Context) {
	var req transport.ListQuotesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationFailed(c, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	filter := service.ListFilter{
		InstitutionID:  parseOptionalUUID(req.InstitutionID),
		AssignedUserID: parseOptionalUUID(req.AssignedUserID),
		Search:         req.Search,
		SortBy:         req.SortBy,
		SortOrder:      req.SortOrder,
		Page:           req.Page,
		PageSize:       req.PageSize,
	}
	if req.Status != "" {
		status := domain.Status(req.Status)
		filter.Status = &status
	}

	result, err := h.svc.ListQuotes(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToListResponse(result))
}

// Create handles POST /api/v1/quotes
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateQuoteRequest
	if !h.bind(c, &req) {
		return
	}

	identity, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.CreateQuote(c.Request.Context(), req.ToQuoteInput(), identity.UserID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToQuoteResponse(result.Quote, result.Lines))
}

// PreviewCalculation handles POST /api/v1/quotes/calculate
// Returns calculated totals without persisting anything.
func (h *Handler) PreviewCalculation(c *gin.Context) {
	var req transport.QuoteCalculationRequest
	if !h.bind(c, &req) {
		return
	}

	lines := make([]domain.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, l.ToLineInput())
	}
	calc, err := h.svc.CalculateQuote(lines)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.QuoteCalculationResponse{
		Lines:               make([]transport.CalculatedLine, 0, len(calc.Lines)),
		Subtotal:            calc.Totals.Subtotal,
		TotalDiscountAmount: calc.Totals.TotalDiscountAmount,
		TotalTaxAmount:      calc.Totals.TotalTaxAmount,
		Total:               calc.Totals.Total,
	}
	for _, a := range calc.Lines {
		resp.Lines = append(resp.Lines, transport.CalculatedLine{
			Subtotal:           a.Subtotal,
			DiscountAmount:     a.DiscountAmount,
			TotalAfterDiscount: a.TotalAfterDiscount,
			TaxAmount:          a.TaxAmount,
			Total:              a.Total,
		})
	}
	httpkit.OK(c, resp)
}

// Statistics handles GET /api/v1/quotes/statistics
func (h *Handler) Statistics(c *gin.Context) {
	var req transport.StatisticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationFailed(c, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	stats, err := h.svc.GetQuoteStatistics(c.Request.Context(), parseOptionalUUID(req.UserID))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToStatisticsResponse(stats))
}

// GetByID handles GET /api/v1/quotes/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.GetQuoteByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToQuoteResponse(result.Quote, result.Lines))
}

// Update handles PATCH /api/v1/quotes/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transport.UpdateQuoteRequest
	if !h.bind(c, &req) {
		return
	}

	identity, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.UpdateQuote(c.Request.Context(), id, req.ToPatch(), identity.UserID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToQuoteResponse(result.Quote, result.Lines))
}

// Delete handles DELETE /api/v1/quotes/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	identity, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteQuote(c.Request.Context(), id, identity.UserID); httpkit.HandleError(c, err) {
		return
	}

	httpkit.NoContent(c)
}

// Send handles POST /api/v1/quotes/:id/send
func (h *Handler) Send(c *gin.Context) {
	h.transition(c, func(c *gin.Context, id, userID uuid.UUID) (*service.QuoteDetails, error) {
		return h.svc.SendQuote(c.Request.Context(), id, userID)
	})
}

// Accept handles POST /api/v1/quotes/:id/accept
func (h *Handler) Accept(c *gin.Context) {
	var req transport.ClientDecisionRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	h.transition(c, func(c *gin.Context, id, userID uuid.UUID) (*service.QuoteDetails, error) {
		return h.svc.AcceptQuote(c.Request.Context(), id, req.Comments(), userID)
	})
}

// Reject handles POST /api/v1/quotes/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	var req transport.ClientDecisionRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	h.transition(c, func(c *gin.Context, id, userID uuid.UUID) (*service.QuoteDetails, error) {
		return h.svc.RejectQuote(c.Request.Context(), id, req.Comments(), userID)
	})
}

// Cancel handles POST /api/v1/quotes/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, func(c *gin.Context, id, userID uuid.UUID) (*service.QuoteDetails, error) {
		return h.svc.CancelQuote(c.Request.Context(), id, userID)
	})
}

func (h *Handler) transition(c *gin.Context, run func(c *gin.Context, id, userID uuid.UUID) (*service.QuoteDetails, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	identity, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := run(c, id, identity.UserID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToQuoteResponse(result.Quote, result.Lines))
}

// ListLines handles GET /api/v1/quotes/:id/lines
func (h *Handler) ListLines(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	lines, err := h.svc.GetQuoteLines(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToLineResponses(lines))
}

// AddLine handles POST /api/v1/quotes/:id/lines
func (h *Handler) AddLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transport.QuoteLineRequest
	if !h.bind(c, &req) {
		return
	}

	identity, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.AddQuoteLine(c.Request.Context(), id, req.ToLineInput(), identity.UserID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.QuoteLineMutationResponse{
		Line:  transport.ToLineResponse(result.Line),
		Quote: transport.ToQuoteResponse(result.Quote, nil),
	})
}

// UpdateLine handles PATCH /api/v1/quotes/:id/lines/:lineId
func (h *Handler) UpdateLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := parseID(c, "lineId")
	if !ok {
		return
	}

	var req transport.UpdateQuoteLineRequest
	if !h.bind(c, &req) {
		return
	}

	identity, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.UpdateQuoteLine(c.Request.Context(), id, lineID, toLinePatch(req), identity.UserID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.QuoteLineMutationResponse{
		Line:  transport.ToLineResponse(result.Line),
		Quote: transport.ToQuoteResponse(result.Quote, nil),
	})
}

// DeleteLine handles DELETE /api/v1/quotes/:id/lines/:lineId
func (h *Handler) DeleteLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := parseID(c, "lineId")
	if !ok {
		return
	}

	identity, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.DeleteQuoteLine(c.Request.Context(), id, lineID, identity.UserID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToQuoteResponse(result.Quote, result.Lines))
}

// ReorderLines handles PUT /api/v1/quotes/:id/lines/order
func (h *Handler) ReorderLines(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transport.ReorderLinesRequest
	if !h.bind(c, &req) {
		return
	}

	identity, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.ReorderQuoteLines(c.Request.Context(), id, req.LineIDs, identity.UserID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToQuoteResponse(result.Quote, result.Lines))
}

// ExpireQuotes handles POST /api/v1/admin/quotes/expire
func (h *Handler) ExpireQuotes(c *gin.Context) {
	count, err := h.svc.MarkExpiredQuotes(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ExpireQuotesResponse{Expired: count})
}

func toLinePatch(req transport.UpdateQuoteLineRequest) service.LinePatch {
	patch := service.LinePatch{
		Description:   sanitize.TextPtr(req.Description),
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		DiscountValue: req.DiscountValue,
		TaxRate:       req.TaxRate,
		OrderIndex:    req.OrderIndex,
	}
	if req.DiscountType != nil {
		dt := domain.DiscountType(*req.DiscountType)
		patch.DiscountType = &dt
	}
	return patch
}
