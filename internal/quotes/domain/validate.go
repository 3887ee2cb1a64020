package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"medcrm_backend/platform/apperr"
)

const (
	maxTitleLength           = 255
	maxLineDescriptionLength = 1000
	maxNotesLength           = 5000
	maxCommentsLength        = 2000
)

// LineInput carries the caller-authored fields of a line.
type LineInput struct {
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	TaxRate       decimal.Decimal
	OrderIndex    *int
}

// Pricing returns the calculation inputs of the line input.
func (in LineInput) Pricing() Pricing {
	return Pricing{
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		TaxRate:       in.TaxRate,
	}
}

// QuoteInput carries the caller-authored fields of a new quote.
type QuoteInput struct {
	Title         string
	Description   *string
	InstitutionID uuid.UUID
	TemplateID    *uuid.UUID
	ValidUntil    time.Time
	Notes         *string
	Lines         []LineInput
}

// QuotePatch lists header fields an update may change. Nil means unchanged.
type QuotePatch struct {
	Title       *string
	Description *string
	TemplateID  *uuid.UUID
	ValidUntil  *time.Time
	Notes       *string
}

// IsEmpty reports whether the patch changes nothing.
func (p QuotePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.TemplateID == nil && p.ValidUntil == nil && p.Notes == nil
}

// Apply copies the set fields of p onto q.
func (p QuotePatch) Apply(q *Quote) {
	if p.Title != nil {
		q.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		q.Description = p.Description
	}
	if p.TemplateID != nil {
		q.TemplateID = p.TemplateID
	}
	if p.ValidUntil != nil {
		q.ValidUntil = *p.ValidUntil
	}
	if p.Notes != nil {
		q.Notes = p.Notes
	}
}

type violations map[string]string

func (v violations) add(field, message string) {
	if _, exists := v[field]; !exists {
		v[field] = message
	}
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return validationError("quote data is invalid", v)
}

// ValidateQuoteData checks a new quote and its lines without touching state.
func ValidateQuoteData(in QuoteInput, now time.Time) error {
	v := violations{}
	checkTitle(v, "title", in.Title)
	if in.InstitutionID == uuid.Nil {
		v.add("institutionId", "institution is required")
	}
	if !in.ValidUntil.After(now) {
		v.add("validUntil", "validity date must be in the future")
	}
	checkOptionalLength(v, "description", in.Description, maxNotesLength)
	checkOptionalLength(v, "notes", in.Notes, maxNotesLength)
	for i, line := range in.Lines {
		prefix := "lines[" + strconv.Itoa(i) + "]."
		checkLine(v, prefix, line)
	}
	if len(v) == 0 && len(in.Lines) > 0 {
		lines := make([]Line, 0, len(in.Lines))
		for _, line := range in.Lines {
			lines = append(lines, Line{Amounts: CalculateLine(line.Pricing())})
		}
		if CheckTotals(SumTotals(lines)) != nil {
			v.add("total", msgQuoteTotalTooLarge)
		}
	}
	return v.err()
}

// ValidatePatch checks an update patch.
func ValidatePatch(p QuotePatch, now time.Time) error {
	v := violations{}
	if p.Title != nil {
		checkTitle(v, "title", *p.Title)
	}
	if p.ValidUntil != nil && !p.ValidUntil.After(now) {
		v.add("validUntil", "validity date must be in the future")
	}
	checkOptionalLength(v, "description", p.Description, maxNotesLength)
	checkOptionalLength(v, "notes", p.Notes, maxNotesLength)
	return v.err()
}

// ValidateLineData checks a single line input.
func ValidateLineData(in LineInput) error {
	v := violations{}
	checkLine(v, "", in)
	return v.err()
}

// ValidateComments checks optional client comments on accept/reject.
func ValidateComments(comments *string) error {
	v := violations{}
	checkOptionalLength(v, "clientComments", comments, maxCommentsLength)
	return v.err()
}

func checkTitle(v violations, field, title string) {
	trimmed := strings.TrimSpace(title)
	switch {
	case trimmed == "":
		v.add(field, "title is required")
	case utf8.RuneCountInString(trimmed) > maxTitleLength:
		v.add(field, "title is too long")
	}
}

func checkOptionalLength(v violations, field string, value *string, limit int) {
	if value != nil && utf8.RuneCountInString(*value) > limit {
		v.add(field, field+" is too long")
	}
}

func checkLine(v violations, prefix string, in LineInput) {
	before := len(v)
	description := strings.TrimSpace(in.Description)
	switch {
	case description == "":
		v.add(prefix+"description", "description is required")
	case utf8.RuneCountInString(description) > maxLineDescriptionLength:
		v.add(prefix+"description", "description cannot exceed 1000 characters")
	}

	switch {
	case !in.Quantity.IsPositive():
		v.add(prefix+"quantity", "quantity must be greater than 0")
	case in.Quantity.GreaterThan(MaxQuantity):
		v.add(prefix+"quantity", "quantity cannot exceed "+MaxQuantity.String())
	case !in.Quantity.Equal(RoundQuantity(in.Quantity)):
		v.add(prefix+"quantity", "quantity supports at most 3 decimal places")
	}

	switch {
	case in.UnitPrice.IsNegative():
		v.add(prefix+"unitPrice", "unit price cannot be negative")
	case in.UnitPrice.GreaterThan(MaxAmount):
		v.add(prefix+"unitPrice", "unit price cannot exceed "+MaxAmount.String())
	case !in.UnitPrice.Equal(RoundMoney(in.UnitPrice)):
		v.add(prefix+"unitPrice", "unit price supports at most 2 decimal places")
	}

	if err := ValidateDiscount(in.DiscountType, in.DiscountValue); err != nil {
		if appErr, ok := apperr.As(err); ok {
			v.add(prefix+"discountValue", appErr.Message)
		}
	} else if in.DiscountValue.GreaterThan(MaxAmount) {
		v.add(prefix+"discountValue", "discount cannot exceed "+MaxAmount.String())
	} else if !in.DiscountValue.Equal(RoundMoney(in.DiscountValue)) {
		v.add(prefix+"discountValue", "discount supports at most 2 decimal places")
	}

	switch {
	case in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(hundred):
		v.add(prefix+"taxRate", "tax rate must be between 0 and 100")
	case !in.TaxRate.Equal(in.TaxRate.Round(RatePlaces)):
		v.add(prefix+"taxRate", "tax rate supports at most 2 decimal places")
	}

	if in.OrderIndex != nil && *in.OrderIndex < 1 {
		v.add(prefix+"orderIndex", "order index must be at least 1")
	}

	// Each input may fit its column while the product does not.
	if len(v) == before {
		amounts := CalculateLine(in.Pricing())
		if amounts.Subtotal.GreaterThan(MaxAmount) || amounts.Total.GreaterThan(MaxAmount) {
			v.add(prefix+"total", msgLineTotalTooLarge)
		}
	}
}

