package domain

import "github.com/shopspring/decimal"

// Relation tells which side of an account a leg hits.
type Relation string

const (
	RelationDebit  Relation = "DEBIT"
	RelationCredit Relation = "CREDIT"
)

// AccountLeg is one side of a booked posting as seen by an account.
// A posting without VAT creates two legs, with VAT three.
type AccountLeg struct {
	Posting  *Posting
	Account  *Account
	Relation Relation
	Amount   decimal.Decimal
	IsVAT    bool

	// Opposing is the counter-leg on the other side of the posting.
	Opposing *AccountLeg
	// VATLeg links a net or gross leg to the tax leg of its posting.
	VATLeg *AccountLeg
}

// SignedAmount is the balance delta for the owning account: debits add
// and credits subtract, flipped for credit-normal accounts.
func (l *AccountLeg) SignedAmount() decimal.Decimal {
	amount := l.Amount
	if l.Relation == RelationCredit {
		amount = amount.Neg()
	}
	if l.Account.IsCreditNormal() {
		amount = amount.Neg()
	}
	return amount
}
