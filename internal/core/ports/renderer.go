package ports

import (
	"github.com/shopspring/decimal"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
)

// BookRenderer receives the validated ledger account by account. The
// report service drives it; swapping the implementation changes the
// output format without touching the walk.
type BookRenderer interface {
	BeginAccount(a *domain.Account)
	Leg(l *domain.AccountLeg)
	EndOfDay(day *domain.AccountDay)
	EndAccount(a *domain.Account, closing decimal.Decimal)
}

// ClosingRenderer receives the closing statements line by line.
type ClosingRenderer interface {
	BeginStructure(title string, opening bool)
	Subtitle(title string, subtotal decimal.Decimal)
	AccountLine(a *domain.Account, amount decimal.Decimal)
	EndStructure(left, right decimal.Decimal)
}
