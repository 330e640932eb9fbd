package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Direction tells which side of the bank account a statement record
// moved money on.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// BankTransaction is one record of a bank statement export. Amount is
// always positive; Direction carries the sign.
type BankTransaction struct {
	Date           ValueDate
	Amount         decimal.Decimal
	Direction      Direction
	Description    string
	SettlementCode string
	LineNr         int

	// Comment is the human-readable origin, "source: description".
	Comment string

	// Seq is the 1-based position within the transaction's day,
	// assigned during reconciliation.
	Seq int

	// MatchedRef is the reference of the journal posting this record
	// is bound to, empty while unbound.
	MatchedRef string
}

// Key identifies the transaction across runs: value date plus the
// per-day sequence, zero-padded so mapping files sort naturally.
func (t *BankTransaction) Key() string {
	return fmt.Sprintf("%s_%03d", t.Date, t.Seq)
}

// Bound reports whether the record is tied to a journal posting.
func (t *BankTransaction) Bound() bool { return t.MatchedRef != "" }

// SignedAmount is the balance delta seen by the bank account: credits
// add, debits subtract.
func (t *BankTransaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionCredit {
		return t.Amount
	}
	return t.Amount.Neg()
}

// MatchesAmount compares the record against a posting amount ignoring
// sign, so mistyped directions still pair up.
func (t *BankTransaction) MatchesAmount(amount decimal.Decimal) bool {
	return t.Amount.Equal(amount) || t.Amount.Equal(amount.Neg())
}
