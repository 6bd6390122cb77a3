package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{in: d("15"), want: "$15.00"},
		{in: d("199.99"), want: "$199.99"},
		{in: d("0"), want: "$0.00"},
		{in: d("10.005"), want: "$10.01"},
		{in: d("1234567.5"), want: "$1234567.50"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUSD(tt.in))
		})
	}
}

func TestFormatLocal(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{in: d("0"), want: "SSP 0"},
		{in: d("999"), want: "SSP 999"},
		{in: d("1000"), want: "SSP 1,000"},
		{in: d("133392.33"), want: "SSP 133,392"},
		{in: d("1234567.5"), want: "SSP 1,234,568"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatLocal(tt.in))
		})
	}
}

func TestConverter(t *testing.T) {
	c := NewConverter(decimal.Zero)
	assert.True(t, DefaultLocalPerUSD.Equal(c.Rate()), "non-positive rate falls back to default")
	assert.Equal(t, "SSP 66,667", c.Display(d("100")))
	assert.Equal(t, "SSP 1", c.Display(d("0.0015")))
	assert.Equal(t, "666.67", c.Rate().StringFixed(2))

	c = NewConverter(d("1500"))
	assert.True(t, d("300000").Equal(c.ToLocal(d("200"))))
	assert.True(t, d("199.99").Equal(c.ToUSD(d("299985"))))
	assert.Equal(t, "SSP 299,985", c.Display(d("199.99")))
}
