// Package money formats and converts catalog prices.
//
// Catalog prices are stored in US dollars. The storefront additionally shows
// amounts in South Sudanese Pounds, so every display path picks one of the two
// formatters below. Arithmetic always happens on decimal.Decimal values; the
// formatters are applied last.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LocalCode is the label used for local-currency amounts.
const LocalCode = "SSP"

// DefaultLocalPerUSD is the exchange rate used when none is configured:
// one pound is worth 0.0015 dollars, about 666.67 pounds per dollar.
var DefaultLocalPerUSD = decimal.NewFromInt(1).Div(decimal.RequireFromString("0.0015"))

var grouping = message.NewPrinter(language.English)

// FormatUSD renders d with exactly two decimal places, e.g. "$15.00".
func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatLocal renders d rounded to a whole unit with thousands grouping,
// e.g. "SSP 133,393".
func FormatLocal(d decimal.Decimal) string {
	return LocalCode + " " + grouping.Sprintf("%d", d.Round(0).IntPart())
}

// Converter converts between US dollars and the local currency.
type Converter struct {
	localPerUSD decimal.Decimal
}

// NewConverter returns a Converter for the given rate. Non-positive rates
// fall back to DefaultLocalPerUSD.
func NewConverter(localPerUSD decimal.Decimal) *Converter {
	if !localPerUSD.IsPositive() {
		localPerUSD = DefaultLocalPerUSD
	}
	return &Converter{localPerUSD: localPerUSD}
}

// Rate returns the number of local units per US dollar.
func (c *Converter) Rate() decimal.Decimal {
	return c.localPerUSD
}

// ToLocal converts a dollar amount to the local currency.
func (c *Converter) ToLocal(usd decimal.Decimal) decimal.Decimal {
	return usd.Mul(c.localPerUSD)
}

// ToUSD converts a local amount to dollars, rounded to cents.
func (c *Converter) ToUSD(local decimal.Decimal) decimal.Decimal {
	return local.Div(c.localPerUSD).Round(2)
}

// Display converts a dollar amount and formats it for the local-currency UI.
func (c *Converter) Display(usd decimal.Decimal) string {
	return FormatLocal(c.ToLocal(usd))
}
