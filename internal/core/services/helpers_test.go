package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/services"
)

// newTestConfig builds a small but complete chart of accounts:
// opening balance sheet sums to zero, one bank account with fallback
// templates, effective VAT by default.
func newTestConfig(t *testing.T) *domain.Config {
	t.Helper()
	period, err := domain.NewPeriod("2024-01-01", "2024-12-31")
	require.NoError(t, err)

	cash := &domain.Account{Number: 1000, Category: domain.CategoryAsset, Text: "Kasse",
		OpeningBalance: decimal.NewFromInt(500)}
	bank := &domain.Account{Number: 1020, Category: domain.CategoryAsset, Text: "Bank",
		OpeningBalance: decimal.NewFromInt(10000)}
	payable := &domain.Account{Number: 2000, Category: domain.CategoryLiability, Text: "Kreditoren",
		OpeningBalance: decimal.NewFromInt(10500)}
	vatDue := &domain.Account{Number: 2200, Category: domain.CategoryLiability, Text: "MwSt"}
	equity := &domain.Account{Number: 2979, Category: domain.CategoryLiability, Text: "Jahresergebnis"}
	sales := &domain.Account{Number: 3000, Category: domain.CategoryIncome, Text: "Verkauf"}
	rent := &domain.Account{Number: 6000, Category: domain.CategoryExpense, Text: "Miete"}

	rate77 := &domain.VATRate{Code: "mwst77", Rate: decimal.RequireFromString("7.7"), Account: vatDue}
	rate25 := &domain.VATRate{Code: "mwst25", Rate: decimal.RequireFromString("2.5"), Account: vatDue}

	miete := &domain.PostingTemplate{Name: "miete", Debit: rent, Credit: bank, Text: "Miete"}
	verkauf := &domain.PostingTemplate{Name: "verkauf", Debit: bank, Credit: sales, VAT: rate77}
	bar := &domain.PostingTemplate{Name: "bar", Debit: cash, Credit: bank}
	diverses := &domain.PostingTemplate{Name: "diverses", Debit: rent, Credit: bank}
	gewinn := &domain.PostingTemplate{Name: "gewinn", Debit: sales, Credit: equity}

	bank.FallbackDebit = verkauf
	bank.FallbackCredit = miete

	cfg := &domain.Config{
		Period:          period,
		Accounts:        map[int]*domain.Account{1000: cash, 1020: bank, 2000: payable, 2200: vatDue, 2979: equity, 3000: sales, 6000: rent},
		AccountsOrdered: []*domain.Account{cash, bank, payable, vatDue, equity, sales, rent},
		Templates: map[string]*domain.PostingTemplate{
			"miete": miete, "verkauf": verkauf, "bar": bar, "diverses": diverses, "gewinn": gewinn,
		},
		Tags:             map[string]struct{}{"privat": {}},
		Swaps:            map[string]*domain.AccountSwap{"kasse": {Tag: "kasse", Account: cash, Replaces: []*domain.Account{bank}}},
		VATRates:         map[string]*domain.VATRate{"mwst77": rate77, "mwst25": rate25},
		VATScheme:        services.NewEffectiveVATScheme(),
		FallbackTemplate: diverses,
		ProfitTemplate:   gewinn,
		BalanceSheet: domain.ClosingStructure{
			Title: "Bilanz",
			Left: domain.ClosingSection{
				{Title: "Umlaufvermögen"}, {Account: cash}, {Account: bank},
			},
			Right: domain.ClosingSection{
				{Account: payable}, {Account: vatDue}, {Account: equity},
			},
		},
		IncomeStatement: domain.ClosingStructure{
			Title: "Erfolgsrechnung",
			Left:  domain.ClosingSection{{Account: rent}},
			Right: domain.ClosingSection{{Account: sales}},
		},
		Banks: []*domain.BankAccount{
			{Name: "main", Account: bank, CheckBalance: true, AddProposals: true},
		},
		TraceDir:   t.TempDir(),
		ReportFile: t.TempDir() + "/out_report.txt",
		SkipMarker: "SKIP",
	}
	return cfg
}

func date(t *testing.T, cfg *domain.Config, s string) domain.ValueDate {
	t.Helper()
	d, err := cfg.Period.Parse(s)
	require.NoError(t, err)
	return d
}

// fakeBankSource feeds tests with in-memory statement records.
type fakeBankSource struct {
	name    string
	txns    []*domain.BankTransaction
	opening decimal.Decimal
	hasOpen bool
	err     error
}

func (f *fakeBankSource) Name() string { return f.name }

func (f *fakeBankSource) Transactions() ([]*domain.BankTransaction, error) {
	return f.txns, f.err
}

func (f *fakeBankSource) OpeningBalance() (decimal.Decimal, bool) {
	return f.opening, f.hasOpen
}
