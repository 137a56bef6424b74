package cli

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatAmount renders d in the display format of the currency code, e.g.
// "$1,234.50" for USD. Unknown codes fall back to "<amount> <code>".
func FormatAmount(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return d.StringFixed(2) + " " + code
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// FormatFlow renders a transaction amount with its direction sign and color.
func FormatFlow(d decimal.Decimal, code string, isCredit bool) string {
	return StyleAmount(FormatAmount(d.Abs(), code), isCredit)
}
