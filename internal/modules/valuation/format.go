package valuation

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the portfolio reporting currency
const Currency = money.INR

// FormatAmount renders an amount in the reporting currency, e.g. "₹1,500.50".
// Amounts are rounded to the currency's minor unit.
func FormatAmount(amount float64) string {
	cur := money.GetCurrency(Currency)
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), Currency).Display()
}

// FormatPercent renders a signed percentage with the given precision, e.g. "+12.50%"
func FormatPercent(pct float64, precision int) string {
	sign := ""
	if pct >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.*f%%", sign, precision, pct)
}
