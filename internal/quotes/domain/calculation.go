package domain

import (
	"github.com/shopspring/decimal"
)

// Money amounts carry two decimals, quantities three. Rounding is half away from zero.
const (
	MoneyPlaces    int32 = 2
	QuantityPlaces int32 = 3
	RatePlaces     int32 = 2
)

var hundred = decimal.NewFromInt(100)

// Upper bounds of the NUMERIC(14,2) money and NUMERIC(14,3) quantity columns.
var (
	MaxAmount   = decimal.RequireFromString("999999999999.99")
	MaxQuantity = decimal.RequireFromString("99999999999.999")
)

// Pricing is the set of inputs a line total is computed from.
type Pricing struct {
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	TaxRate       decimal.Decimal
}

// RoundMoney rounds d to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundQuantity rounds d to three decimals.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPlaces)
}

// CalculateLine derives the money fields of a line.
//
// A fixed discount larger than the subtotal is clamped to the subtotal so the
// discounted amount never goes negative. Percentage discounts are not clamped;
// ValidateDiscount rejects values above 100 before a line reaches this point.
func CalculateLine(p Pricing) LineAmounts {
	subtotal := RoundMoney(p.Quantity.Mul(p.UnitPrice))

	var discount decimal.Decimal
	switch p.DiscountType {
	case DiscountPercentage:
		discount = RoundMoney(subtotal.Mul(p.DiscountValue).Div(hundred))
	case DiscountFixedAmount:
		discount = RoundMoney(decimal.Min(p.DiscountValue, subtotal))
	default:
		discount = decimal.Zero
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	afterDiscount := subtotal.Sub(discount)
	tax := RoundMoney(afterDiscount.Mul(p.TaxRate).Div(hundred))

	return LineAmounts{
		Subtotal:           subtotal,
		DiscountAmount:     discount,
		TotalAfterDiscount: afterDiscount,
		TaxAmount:          tax,
		Total:              afterDiscount.Add(tax),
	}
}

// Recalculate refreshes the derived fields of l from its inputs.
func (l *Line) Recalculate() {
	l.Amounts = CalculateLine(l.Pricing())
}

// ValidateDiscount checks a discount configuration before it is saved.
// Percentages must stay within 0..100; fixed amounts must not be negative.
func ValidateDiscount(discountType DiscountType, value decimal.Decimal) error {
	if !discountType.Valid() || value.IsNegative() {
		return validationError(msgInvalidDiscountConfig, map[string]string{"discountValue": msgInvalidDiscountConfig})
	}
	if discountType == DiscountPercentage && value.GreaterThan(hundred) {
		return validationError(msgPercentageOver100, map[string]string{"discountValue": msgPercentageOver100})
	}
	return nil
}

// CheckTotals rejects rollups that do not fit the quote amount columns.
func CheckTotals(t Totals) error {
	if t.Subtotal.GreaterThan(MaxAmount) || t.Total.GreaterThan(MaxAmount) {
		return validationError(msgQuoteTotalTooLarge, map[string]string{"total": msgQuoteTotalTooLarge})
	}
	return nil
}

// SumTotals rolls line amounts up into quote totals. A quote without lines
// totals zero.
func SumTotals(lines []Line) Totals {
	totals := Totals{
		Subtotal:            decimal.Zero,
		TotalDiscountAmount: decimal.Zero,
		TotalTaxAmount:      decimal.Zero,
		Total:               decimal.Zero,
	}
	for _, line := range lines {
		totals.Subtotal = totals.Subtotal.Add(line.Amounts.Subtotal)
		totals.TotalDiscountAmount = totals.TotalDiscountAmount.Add(line.Amounts.DiscountAmount)
		totals.TotalTaxAmount = totals.TotalTaxAmount.Add(line.Amounts.TaxAmount)
		totals.Total = totals.Total.Add(line.Amounts.Total)
	}
	return totals
}

// ConversionRate is accepted/sent as a percentage rounded to two decimals.
// It is zero when nothing was sent.
func ConversionRate(accepted, sent int64) decimal.Decimal {
	if sent <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(accepted).Mul(hundred).Div(decimal.NewFromInt(sent)).Round(RatePlaces)
}
