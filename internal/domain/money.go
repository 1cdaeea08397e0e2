package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DisplayCurrency is the currency every amount is entered and shown in
const DisplayCurrency = money.USD

// FormatMoney renders an amount the way it is shown to the user, e.g. $1,234.56.
// Amounts whose minor units overflow int64 fall back to plain fixed-point text.
func FormatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(DisplayCurrency)
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	if !minor.BigInt().IsInt64() {
		return amount.StringFixed(int32(cur.Fraction))
	}
	return money.New(minor.IntPart(), DisplayCurrency).Display()
}
