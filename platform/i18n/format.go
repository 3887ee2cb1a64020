// Package i18n formats money, quantities and dates for the configured locale.
package i18n

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter prints money, quantities and dates for one locale and currency.
type Formatter struct {
	printer  *message.Printer
	currency currency.Unit
	layout   string
}

// NewFormatter builds a Formatter. Unknown locales fall back to French and
// unknown currency codes to EUR.
func NewFormatter(locale, currencyCode string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.French
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.EUR
	}

	layout := "02/01/2006"
	if base, _ := tag.Base(); base.String() == "en" {
		if region, conf := tag.Region(); conf == language.Exact && region.String() == "US" {
			layout = "01/02/2006"
		}
	}

	return &Formatter{
		printer:  message.NewPrinter(tag),
		currency: unit,
		layout:   layout,
	}
}

// Money formats an amount with the currency symbol, e.g. "€ 1,234.50" in English.
func (f *Formatter) Money(d decimal.Decimal) string {
	return f.printer.Sprint(currency.Symbol(f.currency.Amount(d.Round(2).InexactFloat64())))
}

// Quantity formats a quantity without trailing zeros.
func (f *Formatter) Quantity(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(3)))
}

// Percent formats a rate already expressed in percent, e.g. 20 -> "20 %".
func (f *Formatter) Percent(d decimal.Decimal) string {
	return strings.TrimSpace(f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))) + " %"
}

// Date formats a date for the locale. Zero times print as an empty string.
func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(f.layout)
}

// DatePtr formats an optional date.
func (f *Formatter) DatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return f.Date(*t)
}

