package i18n

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatter(t *testing.T) {
	f := NewFormatter("en", "EUR")
	assert.Equal(t, "€ 51.75", f.Money(decimal.RequireFromString("51.75")))
	assert.Equal(t, "€ 0.01", f.Money(decimal.RequireFromString("0.005")))
	assert.Equal(t, "2.5", f.Quantity(decimal.RequireFromString("2.500")))
	assert.Equal(t, "5.5 %", f.Percent(decimal.RequireFromString("5.50")))
	assert.Equal(t, "14/03/2025", f.Date(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", f.Date(time.Time{}))
	assert.Equal(t, "", f.DatePtr(nil))
}

func TestFormatterUSDates(t *testing.T) {
	us := NewFormatter("en-US", "USD")
	assert.Equal(t, "03/14/2025", us.Date(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
}

func TestFormatterFallbacks(t *testing.T) {
	f := NewFormatter("not a locale!", "???")
	assert.Equal(t, "14/03/2025", f.Date(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.Contains(t, f.Money(decimal.NewFromInt(3)), "€")
}
