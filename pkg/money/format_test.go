package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat_ArgentineGrouping(t *testing.T) {
	f := NewFormatter("es-AR")

	assert.Equal(t, "85.000,00", f.Format(decimal.RequireFromString("85000")))
	assert.Equal(t, "1.234.567,89", f.Format(decimal.RequireFromString("1234567.891")))
	assert.Equal(t, "20.000,50", f.Format(decimal.RequireFromString("20000.5")))
}

func TestFormat_MissingValuesRenderDash(t *testing.T) {
	f := NewFormatter("es-AR")

	assert.Equal(t, Placeholder, f.FormatNull(decimal.NullDecimal{}))
	assert.Equal(t, Placeholder, f.FormatPositive(decimal.Zero))
	assert.Equal(t, "$ 85.000,00", f.WithSymbol(decimal.NewFromInt(85000)))
}

func TestNewFormatter_BadLocaleFallsBack(t *testing.T) {
	f := NewFormatter("not a locale!!")
	assert.Equal(t, "85.000,00", f.Format(decimal.NewFromInt(85000)))
}
