package domain

import "github.com/shopspring/decimal"

var (
	centStep   = decimal.New(1, -2) // 0.01
	nickelStep = decimal.New(5, -2) // 0.05
)

// IsMinorUnit reports whether the amount is a whole number of cents.
// The engine never books sub-cent amounts.
func IsMinorUnit(d decimal.Decimal) bool {
	return d.Mod(centStep).IsZero()
}

// RoundCent rounds half away from zero to 0.01.
func RoundCent(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundNickel rounds half away from zero to 0.05, the cash rounding
// step used by the flat-rate VAT scheme.
func RoundNickel(d decimal.Decimal) decimal.Decimal {
	return d.Div(nickelStep).Round(0).Mul(nickelStep)
}

// FormatAmount renders an amount with exactly two decimals, the only
// form the journal format accepts.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
