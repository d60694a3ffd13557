package purchaseorder

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculate_WithTaxShippingAndOther(t *testing.T) {
	got, err := Calculate([]ItemInput{
		{Quantity: d("2"), UnitPrice: d("1500.50")},
		{Quantity: d("0.5"), UnitPrice: d("333.33")},
	}, Charges{
		TaxRate:  decimal.NewNullDecimal(d("21")),
		Shipping: d("1200"),
		Other:    d("99.99"),
	})
	require.NoError(t, err)

	require.Len(t, got.Lines, 2)
	assert.Equal(t, "3001", got.Lines[0].String())
	assert.Equal(t, "166.67", got.Lines[1].String())
	assert.Equal(t, "3167.67", got.Subtotal.String())
	assert.Equal(t, "665.21", got.Tax.String())
	assert.Equal(t, "5132.87", got.Total.String())
}

func TestCalculate_NoRateMeansNoTax(t *testing.T) {
	got, err := Calculate([]ItemInput{{Quantity: d("3"), UnitPrice: d("10")}}, Charges{})
	require.NoError(t, err)
	assert.True(t, got.Tax.IsZero())
	assert.Equal(t, "30", got.Total.String())

	got, err = Calculate([]ItemInput{{Quantity: d("3"), UnitPrice: d("10")}}, Charges{TaxRate: decimal.NewNullDecimal(decimal.Zero)})
	require.NoError(t, err)
	assert.True(t, got.Tax.IsZero())
}

func TestCalculate_ZeroPricedLinesAreAllowed(t *testing.T) {
	got, err := Calculate([]ItemInput{{Quantity: d("1"), UnitPrice: decimal.Zero, Description: "muestra"}}, Charges{})
	require.NoError(t, err)
	assert.True(t, got.Total.IsZero())
}

func TestCalculate_Validation(t *testing.T) {
	_, err := Calculate(nil, Charges{})
	require.ErrorIs(t, err, ErrNoItems)

	_, err = Calculate([]ItemInput{{Quantity: d("-1"), UnitPrice: d("10")}}, Charges{})
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = Calculate([]ItemInput{{Quantity: d("1"), UnitPrice: d("-10")}}, Charges{})
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = Calculate([]ItemInput{{Quantity: d("1"), UnitPrice: d("10")}}, Charges{Shipping: d("-1")})
	require.ErrorIs(t, err, ErrNegativeCharges)
}
