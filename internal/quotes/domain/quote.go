// Package domain holds the quote aggregate and the pure rules that govern it:
// line arithmetic, the status lifecycle, numbering and line ordering.
// Nothing here performs I/O; the service layer persists what these functions decide.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a quote.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired, StatusCancelled}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DiscountType selects how a line's discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// Totals are the quote rollups. They are always derived from the lines.
type Totals struct {
	Subtotal            decimal.Decimal
	TotalDiscountAmount decimal.Decimal
	TotalTaxAmount      decimal.Decimal
	Total               decimal.Decimal
}

// Quote is the aggregate root.
type Quote struct {
	ID             uuid.UUID
	QuoteNumber    string
	Title          string
	Description    *string
	InstitutionID  uuid.UUID
	AssignedUserID uuid.UUID
	TemplateID     *uuid.UUID
	Status         Status
	ValidUntil     time.Time
	AcceptedAt     *time.Time
	RejectedAt     *time.Time
	ClientComments *string
	Notes          *string
	Totals         Totals
	PDFFileKey     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LineAmounts are the derived money fields of a line.
type LineAmounts struct {
	Subtotal           decimal.Decimal
	DiscountAmount     decimal.Decimal
	TotalAfterDiscount decimal.Decimal
	TaxAmount          decimal.Decimal
	Total              decimal.Decimal
}

// Line is a priced item owned by exactly one quote.
type Line struct {
	ID            uuid.UUID
	QuoteID       uuid.UUID
	OrderIndex    int
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	TaxRate       decimal.Decimal
	Amounts       LineAmounts
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Pricing returns the five calculation inputs of the line.
func (l Line) Pricing() Pricing {
	return Pricing{
		Quantity:      l.Quantity,
		UnitPrice:     l.UnitPrice,
		DiscountType:  l.DiscountType,
		DiscountValue: l.DiscountValue,
		TaxRate:       l.TaxRate,
	}
}

// Statistics aggregates quotes per status.
type Statistics struct {
	TotalQuotes     int64
	DraftQuotes     int64
	SentQuotes      int64
	AcceptedQuotes  int64
	RejectedQuotes  int64
	ExpiredQuotes   int64
	CancelledQuotes int64
	TotalValue      decimal.Decimal
	AcceptedValue   decimal.Decimal
	ConversionRate  decimal.Decimal
}

// Template is an HTML layout used when rendering a quote to PDF.
type Template struct {
	ID   uuid.UUID
	Name string
	HTML string
}
