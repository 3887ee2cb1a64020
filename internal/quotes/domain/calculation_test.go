package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	"medcrm_backend/platform/apperr"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, field string, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("expected %s %s, got %s", field, want, got)
	}
}

func TestCalculateLine_PercentageDiscount(t *testing.T) {
	got := CalculateLine(Pricing{
		Quantity:      dec("2"),
		UnitPrice:     dec("100"),
		DiscountType:  DiscountPercentage,
		DiscountValue: dec("10"),
		TaxRate:       dec("20"),
	})

	assertDec(t, "subtotal", "200", got.Subtotal)
	assertDec(t, "discount", "20", got.DiscountAmount)
	assertDec(t, "after discount", "180", got.TotalAfterDiscount)
	assertDec(t, "tax", "36", got.TaxAmount)
	assertDec(t, "total", "216", got.Total)
}

func TestCalculateLine_FixedDiscount(t *testing.T) {
	got := CalculateLine(Pricing{
		Quantity:      dec("1"),
		UnitPrice:     dec("50"),
		DiscountType:  DiscountFixedAmount,
		DiscountValue: dec("5"),
		TaxRate:       dec("15"),
	})

	assertDec(t, "discount", "5", got.DiscountAmount)
	assertDec(t, "after discount", "45", got.TotalAfterDiscount)
	assertDec(t, "tax", "6.75", got.TaxAmount)
	assertDec(t, "total", "51.75", got.Total)
}

func TestCalculateLine_FixedDiscountClampedToSubtotal(t *testing.T) {
	got := CalculateLine(Pricing{
		Quantity:      dec("1"),
		UnitPrice:     dec("50"),
		DiscountType:  DiscountFixedAmount,
		DiscountValue: dec("100"),
		TaxRate:       dec("20"),
	})

	assertDec(t, "discount", "50", got.DiscountAmount)
	assertDec(t, "after discount", "0", got.TotalAfterDiscount)
	assertDec(t, "tax", "0", got.TaxAmount)
	assertDec(t, "total", "0", got.Total)
}

func TestCalculateLine_RecurringDecimalsStayWithinACent(t *testing.T) {
	got := CalculateLine(Pricing{
		Quantity:      dec("3.333"),
		UnitPrice:     dec("19.99"),
		DiscountType:  DiscountPercentage,
		DiscountValue: dec("33.33"),
		TaxRate:       dec("5.5"),
	})

	if got.DiscountAmount.GreaterThan(got.Subtotal) {
		t.Fatalf("discount %s exceeds subtotal %s", got.DiscountAmount, got.Subtotal)
	}
	raw := dec("3.333").Mul(dec("19.99")).Sub(got.DiscountAmount).Add(got.TaxAmount)
	if raw.Sub(got.Total).Abs().GreaterThan(dec("0.01")) {
		t.Fatalf("total %s drifts from %s by more than a cent", got.Total, raw)
	}
	if got.Total.Exponent() < -2 {
		t.Fatalf("expected total rounded to cents, got %s", got.Total)
	}
}

func TestCalculateLine_ZeroPriceLine(t *testing.T) {
	got := CalculateLine(Pricing{
		Quantity:      dec("4"),
		UnitPrice:     dec("0"),
		DiscountType:  DiscountFixedAmount,
		DiscountValue: dec("10"),
		TaxRate:       dec("20"),
	})

	assertDec(t, "discount", "0", got.DiscountAmount)
	assertDec(t, "total", "0", got.Total)
}

func TestSumTotals_TwoLineScenario(t *testing.T) {
	lineA := Line{Quantity: dec("2"), UnitPrice: dec("100"), DiscountType: DiscountPercentage, DiscountValue: dec("10"), TaxRate: dec("20")}
	lineB := Line{Quantity: dec("1"), UnitPrice: dec("50"), DiscountType: DiscountFixedAmount, DiscountValue: dec("5"), TaxRate: dec("15")}
	lineA.Recalculate()
	lineB.Recalculate()

	totals := SumTotals([]Line{lineA, lineB})

	assertDec(t, "subtotal", "250", totals.Subtotal)
	assertDec(t, "discount", "25", totals.TotalDiscountAmount)
	assertDec(t, "tax", "42.75", totals.TotalTaxAmount)
	assertDec(t, "total", "267.75", totals.Total)
}

func TestSumTotals_EmptyQuoteIsZero(t *testing.T) {
	totals := SumTotals(nil)
	assertDec(t, "total", "0", totals.Total)
	assertDec(t, "subtotal", "0", totals.Subtotal)
}

func TestValidateDiscount(t *testing.T) {
	cases := []struct {
		name    string
		kind    DiscountType
		value   string
		message string
	}{
		{name: "percentage at bound", kind: DiscountPercentage, value: "100"},
		{name: "percentage over bound", kind: DiscountPercentage, value: "100.01", message: "Percentage discount cannot exceed 100%"},
		{name: "negative percentage", kind: DiscountPercentage, value: "-1", message: "Invalid discount configuration"},
		{name: "fixed above subtotal is clamped later", kind: DiscountFixedAmount, value: "9999"},
		{name: "negative fixed", kind: DiscountFixedAmount, value: "-0.01", message: "Invalid discount configuration"},
		{name: "unknown type", kind: DiscountType("bogus"), value: "1", message: "Invalid discount configuration"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDiscount(tc.kind, dec(tc.value))
			if tc.message == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			appErr, ok := apperr.As(err)
			if !ok {
				t.Fatalf("expected app error, got %v", err)
			}
			if appErr.Message != tc.message || appErr.Code != CodeValidation {
				t.Fatalf("expected %q/%s, got %q/%s", tc.message, CodeValidation, appErr.Message, appErr.Code)
			}
		})
	}
}

func TestConversionRate(t *testing.T) {
	assertDec(t, "rate", "0", ConversionRate(0, 0))
	assertDec(t, "rate", "50", ConversionRate(2, 4))
	assertDec(t, "rate", "33.33", ConversionRate(1, 3))
}
