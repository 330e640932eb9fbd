package services

import (
	"github.com/shopspring/decimal"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
)

var hundred = decimal.NewFromInt(100)

// effectiveVAT extracts the tax contained in a gross amount:
// gross × rate / (100 + rate), rounded to the cent.
type effectiveVAT struct{}

// NewEffectiveVATScheme returns the standard (effective) VAT scheme.
func NewEffectiveVATScheme() domain.VATScheme { return effectiveVAT{} }

func (effectiveVAT) Name() string { return "effective" }

func (effectiveVAT) Amount(gross, rate decimal.Decimal) decimal.Decimal {
	return domain.RoundCent(gross.Mul(rate).Div(hundred.Add(rate)))
}

// flatRateVAT applies the simplified net-tax rate on top of the gross
// amount: gross × rate / 100, rounded to the nearest 0.05.
type flatRateVAT struct{}

// NewFlatRateVATScheme returns the flat-rate VAT scheme.
func NewFlatRateVATScheme() domain.VATScheme { return flatRateVAT{} }

func (flatRateVAT) Name() string { return "flat-rate" }

func (flatRateVAT) Amount(gross, rate decimal.Decimal) decimal.Decimal {
	return domain.RoundNickel(gross.Mul(rate).Div(hundred))
}

var (
	_ domain.VATScheme = effectiveVAT{}
	_ domain.VATScheme = flatRateVAT{}
)
