// Package money renders amounts the way the shop prints them on quotes and emails.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	DefaultLocale = "es-AR"
	Scale         = 2
	Placeholder   = "-"
)

type Formatter struct {
	printer *message.Printer
}

// NewFormatter falls back to es-AR when the locale tag cannot be parsed.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return Formatter{printer: message.NewPrinter(tag)}
}

// Format renders d with two decimals and the locale's grouping, e.g. 85.000,00 for es-AR.
func (f Formatter) Format(d decimal.Decimal) string {
	if f.printer == nil {
		f = NewFormatter(DefaultLocale)
	}
	v, _ := d.Round(Scale).Float64()
	return f.printer.Sprint(number.Decimal(v, number.MinFractionDigits(Scale), number.MaxFractionDigits(Scale)))
}

func (f Formatter) FormatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return Placeholder
	}
	return f.Format(d.Decimal)
}

// FormatPositive renders zero amounts as the placeholder dash.
func (f Formatter) FormatPositive(d decimal.Decimal) string {
	if !d.IsPositive() {
		return Placeholder
	}
	return f.Format(d)
}

// WithSymbol prefixes the formatted amount with the peso sign.
func (f Formatter) WithSymbol(d decimal.Decimal) string {
	return "$ " + f.Format(d)
}
