// Package purchaseorder records supplier purchase orders and computes their totals.
package purchaseorder

import (
	"github.com/shopspring/decimal"

	"repairshop/internal/apperr"
)

const Scale int32 = 2

var (
	ErrNoItems         = apperr.Validation("ITEMS_REQUIRED", "La orden debe tener al menos un ítem")
	ErrNegativeAmount  = apperr.Validation("AMOUNT_NEGATIVE", "Cantidad y precio no pueden ser negativos")
	ErrNegativeCharges = apperr.Validation("CHARGES_NEGATIVE", "Impuesto, envío y otros no pueden ser negativos")
)

type ItemInput struct {
	Quantity    decimal.Decimal
	Weight      string
	Description string
	UnitPrice   decimal.Decimal
}

type Charges struct {
	// TaxRate is a percentage like 21 for 21%. Null means no tax line.
	TaxRate  decimal.NullDecimal
	Shipping decimal.Decimal
	Other    decimal.Decimal
}

type Totals struct {
	Lines    []decimal.Decimal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Calculate prices every line and the order totals.
//
// Each line is quantity times unit price. Tax applies to the subtotal only
// when a rate is present. Every amount is rounded to two decimals, and the
// total is the sum of the rounded parts.
func Calculate(items []ItemInput, c Charges) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, ErrNoItems
	}
	if (c.TaxRate.Valid && c.TaxRate.Decimal.IsNegative()) || c.Shipping.IsNegative() || c.Other.IsNegative() {
		return Totals{}, ErrNegativeCharges
	}

	out := Totals{Lines: make([]decimal.Decimal, 0, len(items))}
	sum := decimal.Zero
	for _, it := range items {
		if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() {
			return Totals{}, ErrNegativeAmount
		}
		line := it.Quantity.Mul(it.UnitPrice).Round(Scale)
		out.Lines = append(out.Lines, line)
		sum = sum.Add(line)
	}
	out.Subtotal = sum.Round(Scale)

	out.Tax = decimal.Zero
	if c.TaxRate.Valid {
		out.Tax = out.Subtotal.Mul(c.TaxRate.Decimal).Div(decimal.NewFromInt(100)).Round(Scale)
	}
	out.Total = out.Subtotal.Add(out.Tax).Add(c.Shipping.Round(Scale)).Add(c.Other.Round(Scale))
	return out, nil
}
