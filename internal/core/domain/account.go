package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category classifies an account for balance math and reporting.
type Category string

const (
	CategoryAsset     Category = "ASSET"
	CategoryLiability Category = "LIABILITY"
	CategoryIncome    Category = "INCOME"
	CategoryExpense   Category = "EXPENSE"
)

// Valid reports whether the category is one of the four known kinds.
func (c Category) Valid() bool {
	switch c {
	case CategoryAsset, CategoryLiability, CategoryIncome, CategoryExpense:
		return true
	}
	return false
}

// Account is one account of the chart of accounts. Accounts are built
// once during config resolution and shared by pointer afterwards.
type Account struct {
	Number         int
	Category       Category
	Text           string
	OpeningBalance decimal.Decimal

	// Fallback templates used for bank proposals when no rule matches.
	// Only set for accounts that act as bank accounts.
	FallbackCredit *PostingTemplate
	FallbackDebit  *PostingTemplate

	// Days holds this account's per-day legs and balances; wired by
	// NewJournal.
	Days *AccountDays

	closing    decimal.Decimal
	closingSet bool
}

// IsBalanceSheet reports whether the account appears on the balance sheet.
func (a *Account) IsBalanceSheet() bool {
	return a.Category == CategoryAsset || a.Category == CategoryLiability
}

// IsIncomeStatement reports whether the account appears on the income
// statement.
func (a *Account) IsIncomeStatement() bool { return !a.IsBalanceSheet() }

// IsCreditNormal reports whether balances grow on the credit side.
func (a *Account) IsCreditNormal() bool {
	return a.Category == CategoryIncome || a.Category == CategoryLiability
}

// SetClosingBalance records the final balance after replay. Settling an
// account twice is a programming error.
func (a *Account) SetClosingBalance(balance decimal.Decimal) error {
	if a.closingSet {
		return fmt.Errorf("account %d: closing balance already set", a.Number)
	}
	a.closing = balance
	a.closingSet = true
	return nil
}

// ClosingBalance returns the final balance after replay; before replay
// it falls back to the opening balance.
func (a *Account) ClosingBalance() decimal.Decimal {
	if !a.closingSet {
		return a.OpeningBalance
	}
	return a.closing
}

// String renders the account for diagnostics as "number (text)".
func (a *Account) String() string {
	return fmt.Sprintf("%d (%s)", a.Number, a.Text)
}
