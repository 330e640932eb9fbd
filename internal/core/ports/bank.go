package ports

import (
	"github.com/shopspring/decimal"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
)

// BankSource delivers the statement records of one bank account.
// Implementations parse whatever export format the bank produces; the
// engine only sees transactions and an optional authoritative opening
// balance.
type BankSource interface {
	// Name identifies the source in diagnostics, typically the file name.
	Name() string

	// Transactions returns all records of the export in any order.
	Transactions() ([]*domain.BankTransaction, error)

	// OpeningBalance returns the balance the source claims at period
	// start. ok is false when the format carries no balance.
	OpeningBalance() (balance decimal.Decimal, ok bool)
}
