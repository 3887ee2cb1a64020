package transport

import (
	"time"

	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/internal/quotes/repository"
	"medcrm_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// QuoteLineRequest is the input for a single quote line
type QuoteLineRequest struct {
	Description   string          `json:"description" validate:"required,max=1000"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gt=0,lte=99999999999.999"`
	UnitPrice     decimal.Decimal `json:"unitPrice" validate:"gte=0,lte=999999999999.99"`
	DiscountType  string          `json:"discountType" validate:"required,oneof=percentage fixed_amount"`
	DiscountValue decimal.Decimal `json:"discountValue" validate:"gte=0,lte=999999999999.99"`
	TaxRate       decimal.Decimal `json:"taxRate" validate:"gte=0,lte=100"`
	OrderIndex    *int            `json:"orderIndex" validate:"omitempty,min=1"`
}

// CreateQuoteRequest is the request body for creating a new quote
type CreateQuoteRequest struct {
	Title         string             `json:"title" validate:"required,max=255"`
	Description   *string            `json:"description" validate:"omitempty,max=5000"`
	InstitutionID uuid.UUID          `json:"institutionId" validate:"required"`
	TemplateID    *uuid.UUID         `json:"templateId"`
	ValidUntil    time.Time          `json:"validUntil" validate:"required"`
	Notes         *string            `json:"notes" validate:"omitempty,max=5000"`
	Lines         []QuoteLineRequest `json:"lines" validate:"omitempty,dive"`
}

// UpdateQuoteRequest is the request body for patching a quote header
type UpdateQuoteRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	TemplateID  *uuid.UUID `json:"templateId"`
	ValidUntil  *time.Time `json:"validUntil"`
	Notes       *string    `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateQuoteLineRequest is the request body for patching a line. Omitted fields stay unchanged.
type UpdateQuoteLineRequest struct {
	Description   *string          `json:"description" validate:"omitempty,max=1000"`
	Quantity      *decimal.Decimal `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unitPrice"`
	DiscountType  *string          `json:"discountType" validate:"omitempty,oneof=percentage fixed_amount"`
	DiscountValue *decimal.Decimal `json:"discountValue"`
	TaxRate       *decimal.Decimal `json:"taxRate"`
	OrderIndex    *int             `json:"orderIndex" validate:"omitempty,min=1"`
}

// ReorderLinesRequest lists every line id of the quote in the new order
type ReorderLinesRequest struct {
	LineIDs []uuid.UUID `json:"lineIds" validate:"required,min=1"`
}

// ClientDecisionRequest carries the optional comments of an accept or reject
type ClientDecisionRequest struct {
	ClientComments *string `json:"clientComments" validate:"omitempty,max=2000"`
}

// QuoteCalculationRequest is the request body for the preview calculation endpoint
type QuoteCalculationRequest struct {
	Lines []QuoteLineRequest `json:"lines" validate:"required,dive"`
}

// ListQuotesRequest defines the query parameters for listing quotes
type ListQuotesRequest struct {
	Status         string `form:"status" validate:"omitempty,oneof=draft sent accepted rejected expired cancelled"`
	InstitutionID  string `form:"institutionId" validate:"omitempty,uuid"`
	AssignedUserID string `form:"assignedUserId" validate:"omitempty,uuid"`
	Search         string `form:"search" validate:"omitempty,max=100"`
	SortBy         string `form:"sortBy" validate:"omitempty,oneof=quoteNumber status total validUntil createdAt"`
	SortOrder      string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page           int    `form:"page" validate:"omitempty,min=1"`
	PageSize       int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// StatisticsRequest optionally narrows statistics to one assignee
type StatisticsRequest struct {
	UserID string `form:"userId" validate:"omitempty,uuid"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// QuoteLineResponse is the response for a single line
type QuoteLineResponse struct {
	ID                 uuid.UUID       `json:"id"`
	QuoteID            uuid.UUID       `json:"quoteId"`
	OrderIndex         int             `json:"orderIndex"`
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	DiscountType       string          `json:"discountType"`
	DiscountValue      decimal.Decimal `json:"discountValue"`
	TaxRate            decimal.Decimal `json:"taxRate"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	TotalAfterDiscount decimal.Decimal `json:"totalAfterDiscount"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	Total              decimal.Decimal `json:"total"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// QuoteResponse is the response for a quote, with lines when they were loaded
type QuoteResponse struct {
	ID                  uuid.UUID           `json:"id"`
	QuoteNumber         string              `json:"quoteNumber"`
	Title               string              `json:"title"`
	Description         *string             `json:"description,omitempty"`
	InstitutionID       uuid.UUID           `json:"institutionId"`
	AssignedUserID      uuid.UUID           `json:"assignedUserId"`
	TemplateID          *uuid.UUID          `json:"templateId,omitempty"`
	Status              string              `json:"status"`
	ValidUntil          time.Time           `json:"validUntil"`
	AcceptedAt          *time.Time          `json:"acceptedAt,omitempty"`
	RejectedAt          *time.Time          `json:"rejectedAt,omitempty"`
	ClientComments      *string             `json:"clientComments,omitempty"`
	Notes               *string             `json:"notes,omitempty"`
	Subtotal            decimal.Decimal     `json:"subtotal"`
	TotalDiscountAmount decimal.Decimal     `json:"totalDiscountAmount"`
	TotalTaxAmount      decimal.Decimal     `json:"totalTaxAmount"`
	Total               decimal.Decimal     `json:"total"`
	HasPDF              bool                `json:"hasPdf"`
	Lines               []QuoteLineResponse `json:"lines,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// QuoteLineMutationResponse is returned by line add and update
type QuoteLineMutationResponse struct {
	Line  QuoteLineResponse `json:"line"`
	Quote QuoteResponse     `json:"quote"`
}

// QuoteListResponse is the paginated list of quotes
type QuoteListResponse struct {
	Items      []QuoteResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// QuoteStatisticsResponse aggregates quote counts and values
type QuoteStatisticsResponse struct {
	TotalQuotes     int64           `json:"totalQuotes"`
	DraftQuotes     int64           `json:"draftQuotes"`
	SentQuotes      int64           `json:"sentQuotes"`
	AcceptedQuotes  int64           `json:"acceptedQuotes"`
	RejectedQuotes  int64           `json:"rejectedQuotes"`
	ExpiredQuotes   int64           `json:"expiredQuotes"`
	CancelledQuotes int64           `json:"cancelledQuotes"`
	TotalValue      decimal.Decimal `json:"totalValue"`
	AcceptedValue   decimal.Decimal `json:"acceptedValue"`
	ConversionRate  decimal.Decimal `json:"conversionRate"`
}

// CalculatedLine is one line of a preview calculation
type CalculatedLine struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	TotalAfterDiscount decimal.Decimal `json:"totalAfterDiscount"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	Total              decimal.Decimal `json:"total"`
}

// QuoteCalculationResponse is the preview of line and quote totals
type QuoteCalculationResponse struct {
	Lines               []CalculatedLine `json:"lines"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	TotalDiscountAmount decimal.Decimal  `json:"totalDiscountAmount"`
	TotalTaxAmount      decimal.Decimal  `json:"totalTaxAmount"`
	Total               decimal.Decimal  `json:"total"`
}

// ExpireQuotesResponse reports a manual expiry sweep
type ExpireQuotesResponse struct {
	Expired int64 `json:"expired"`
}

// ── Mapping ───────────────────────────────────────────────────────────────────

// ToLineInput converts a line request into the domain input. Free text is sanitized.
func (r QuoteLineRequest) ToLineInput() domain.LineInput {
	return domain.LineInput{
		Description:   sanitize.Text(r.Description),
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		DiscountType:  domain.DiscountType(r.DiscountType),
		DiscountValue: r.DiscountValue,
		TaxRate:       r.TaxRate,
		OrderIndex:    r.OrderIndex,
	}
}

// ToQuoteInput converts the create request into the domain input.
func (r CreateQuoteRequest) ToQuoteInput() domain.QuoteInput {
	lines := make([]domain.LineInput, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, l.ToLineInput())
	}
	return domain.QuoteInput{
		Title:         sanitize.Text(r.Title),
		Description:   sanitize.TextPtr(r.Description),
		InstitutionID: r.InstitutionID,
		TemplateID:    r.TemplateID,
		ValidUntil:    r.ValidUntil.UTC(),
		Notes:         sanitize.TextPtr(r.Notes),
		Lines:         lines,
	}
}

// ToPatch converts the update request into a domain patch.
func (r UpdateQuoteRequest) ToPatch() domain.QuotePatch {
	patch := domain.QuotePatch{
		Title:       sanitize.TextPtr(r.Title),
		Description: sanitize.TextPtr(r.Description),
		TemplateID:  r.TemplateID,
		Notes:       sanitize.TextPtr(r.Notes),
	}
	if r.ValidUntil != nil {
		v := r.ValidUntil.UTC()
		patch.ValidUntil = &v
	}
	return patch
}

// Comments returns the sanitized client comments.
func (r ClientDecisionRequest) Comments() *string {
	return sanitize.OptionalText(r.ClientComments)
}

// ToQuoteResponse maps a quote and its lines.
func ToQuoteResponse(q domain.Quote, lines []domain.Line) QuoteResponse {
	resp := QuoteResponse{
		ID:                  q.ID,
		QuoteNumber:         q.QuoteNumber,
		Title:               q.Title,
		Description:         q.Description,
		InstitutionID:       q.InstitutionID,
		AssignedUserID:      q.AssignedUserID,
		TemplateID:          q.TemplateID,
		Status:              string(q.Status),
		ValidUntil:          q.ValidUntil,
		AcceptedAt:          q.AcceptedAt,
		RejectedAt:          q.RejectedAt,
		ClientComments:      q.ClientComments,
		Notes:               q.Notes,
		Subtotal:            q.Totals.Subtotal,
		TotalDiscountAmount: q.Totals.TotalDiscountAmount,
		TotalTaxAmount:      q.Totals.TotalTaxAmount,
		Total:               q.Totals.Total,
		HasPDF:              q.PDFFileKey != nil,
		CreatedAt:           q.CreatedAt,
		UpdatedAt:           q.UpdatedAt,
	}
	if lines != nil {
		resp.Lines = ToLineResponses(lines)
	}
	return resp
}

// ToLineResponse maps one line.
func ToLineResponse(l domain.Line) QuoteLineResponse {
	return QuoteLineResponse{
		ID:                 l.ID,
		QuoteID:            l.QuoteID,
		OrderIndex:         l.OrderIndex,
		Description:        l.Description,
		Quantity:           l.Quantity,
		UnitPrice:          l.UnitPrice,
		DiscountType:       string(l.DiscountType),
		DiscountValue:      l.DiscountValue,
		TaxRate:            l.TaxRate,
		Subtotal:           l.Amounts.Subtotal,
		DiscountAmount:     l.Amounts.DiscountAmount,
		TotalAfterDiscount: l.Amounts.TotalAfterDiscount,
		TaxAmount:          l.Amounts.TaxAmount,
		Total:              l.Amounts.Total,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

// ToLineResponses maps lines, keeping their order.
func ToLineResponses(lines []domain.Line) []QuoteLineResponse {
	out := make([]QuoteLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, ToLineResponse(l))
	}
	return out
}

// ToListResponse maps a page of quotes.
func ToListResponse(result *repository.ListResult) QuoteListResponse {
	items := make([]QuoteResponse, 0, len(result.Items))
	for _, q := range result.Items {
		items = append(items, ToQuoteResponse(q, nil))
	}
	return QuoteListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
}

// ToStatisticsResponse maps aggregated statistics.
func ToStatisticsResponse(s domain.Statistics) QuoteStatisticsResponse {
	return QuoteStatisticsResponse{
		TotalQuotes:     s.TotalQuotes,
		DraftQuotes:     s.DraftQuotes,
		SentQuotes:      s.SentQuotes,
		AcceptedQuotes:  s.AcceptedQuotes,
		RejectedQuotes:  s.RejectedQuotes,
		ExpiredQuotes:   s.ExpiredQuotes,
		CancelledQuotes: s.CancelledQuotes,
		TotalValue:      s.TotalValue,
		AcceptedValue:   s.AcceptedValue,
		ConversionRate:  s.ConversionRate,
	}
}
