package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	Description string          `json:"description" validate:"required,max=1000"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	TaxRate     decimal.Decimal `json:"taxRate" validate:"gte=0,lte=100"`
}

func TestDecimalFieldsUseNumericTags(t *testing.T) {
	val := New()

	ok := lineInput{Description: "Echograph", Quantity: decimal.RequireFromString("1.5"), TaxRate: decimal.NewFromInt(20)}
	require.NoError(t, val.Struct(ok))

	bad := lineInput{Description: "", Quantity: decimal.Zero, TaxRate: decimal.NewFromInt(120)}
	err := val.Struct(bad)
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, "required", fields["description"])
	assert.Equal(t, "gt=0", fields["quantity"])
	assert.Equal(t, "lte=100", fields["taxRate"])
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
}
