package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/services"
)

func TestEffectiveVATScheme(t *testing.T) {
	scheme := services.NewEffectiveVATScheme()
	assert.Equal(t, "effective", scheme.Name())

	testCases := []struct {
		gross string
		rate  string
		want  string
	}{
		{"107.70", "7.7", "7.70"},
		{"100.00", "7.7", "7.15"},
		{"102.50", "2.5", "2.50"},
		{"100.00", "2.5", "2.44"},
		{"103.70", "3.7", "3.70"},
		{"19.95", "7.7", "1.43"},
		{"-107.70", "7.7", "-7.70"},
		{"0.00", "7.7", "0.00"},
	}
	for _, tc := range testCases {
		t.Run(tc.gross+"@"+tc.rate, func(t *testing.T) {
			got := scheme.Amount(decimal.RequireFromString(tc.gross), decimal.RequireFromString(tc.rate))
			assert.Equal(t, tc.want, domain.FormatAmount(got))
		})
	}
}

func TestFlatRateVATScheme(t *testing.T) {
	scheme := services.NewFlatRateVATScheme()
	assert.Equal(t, "flat-rate", scheme.Name())

	testCases := []struct {
		gross string
		rate  string
		want  string
	}{
		{"100.00", "3.7", "3.70"},
		{"100.00", "7.7", "7.70"},
		{"19.95", "3.7", "0.75"},
		{"10.00", "3.7", "0.35"},
		{"-100.00", "3.7", "-3.70"},
	}
	for _, tc := range testCases {
		t.Run(tc.gross+"@"+tc.rate, func(t *testing.T) {
			got := scheme.Amount(decimal.RequireFromString(tc.gross), decimal.RequireFromString(tc.rate))
			assert.Equal(t, tc.want, domain.FormatAmount(got))
		})
	}
}

// Net plus tax must rebuild the gross amount exactly under the
// effective scheme.
func TestEffectiveVATSplitIsExact(t *testing.T) {
	scheme := services.NewEffectiveVATScheme()
	rate := decimal.RequireFromString("7.7")
	for _, gross := range []string{"107.70", "19.95", "0.01", "12345.67", "-53.80"} {
		g := decimal.RequireFromString(gross)
		vat := scheme.Amount(g, rate)
		net := g.Sub(vat)
		assert.True(t, net.Add(vat).Equal(g), "gross %s", gross)
		assert.True(t, domain.IsMinorUnit(vat), "vat %s not a cent amount", vat)
	}
}
