package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/cashbooklabs/cashbook/internal/apperrors"
)

// PostingTemplate names a debit/credit account pair, optionally with a
// default VAT rate. Journal lines book through templates, never through
// raw account numbers.
type PostingTemplate struct {
	Name   string
	Debit  *Account
	Credit *Account
	VAT    *VATRate
	Text   string
}

// ValidatePairing enforces the allowed account combinations: both sides
// assets, or exactly one balance-sheet and one income-statement side.
func (t *PostingTemplate) ValidatePairing() error {
	if t.Debit.Category == CategoryAsset && t.Credit.Category == CategoryAsset {
		return nil
	}
	if t.Debit.IsBalanceSheet() != t.Credit.IsBalanceSheet() {
		return nil
	}
	return fmt.Errorf("%w: template %q pairs %s with %s", apperrors.ErrValidation,
		t.Name, t.Debit, t.Credit)
}

// VATRate is a configured VAT code with its percentage and the account
// the tax leg posts to.
type VATRate struct {
	Code    string
	Rate    decimal.Decimal
	Account *Account
	Text    string
}

// VATScheme computes the tax portion of a gross amount. The scheme is
// fixed per period by configuration.
type VATScheme interface {
	Name() string
	Amount(gross, rate decimal.Decimal) decimal.Decimal
}

// AccountSwap substitutes one account of a posting when its tag appears
// in the instruction chain.
type AccountSwap struct {
	Tag      string
	Account  *Account
	Replaces []*Account
}

// Covers reports whether the swap may replace the given account.
func (s *AccountSwap) Covers(a *Account) bool {
	for _, r := range s.Replaces {
		if r == a {
			return true
		}
	}
	return false
}

// ProposalRule turns an unmatched bank transaction into a proposed
// journal line when its search text occurs in the bank description.
type ProposalRule struct {
	SearchText  string
	Instruction string
	Template    *PostingTemplate
	Text        string
	DirectBook  bool
}

// BankAccount is the reconciliation configuration for one account that
// mirrors a real bank account.
type BankAccount struct {
	Name         string
	Account      *Account
	SourceFile   string
	CheckBalance bool
	AddProposals bool
}
