package services

import (
	"context"
	"fmt"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

// LedgerService turns postings into account legs (splitting VAT) and
// replays them into per-day balances.
type LedgerService struct {
	cfg *domain.Config
}

// NewLedgerService creates the booking engine for one run.
func NewLedgerService(cfg *domain.Config) *LedgerService {
	return &LedgerService{cfg: cfg}
}

// Book creates the legs of every posting and settles all account
// balances. It runs once, after all postings (including proposals)
// exist.
func (s *LedgerService) Book(ctx context.Context, j *domain.Journal) error {
	logger := logging.FromCtx(ctx)

	count := 0
	for _, day := range j.Days.Ordered() {
		for _, posting := range day.Postings() {
			if err := s.createLegs(posting); err != nil {
				return err
			}
			count++
		}
	}
	if err := s.settle(j); err != nil {
		return err
	}
	logger.Debug("postings booked", "count", count)
	return nil
}

func (s *LedgerService) createLegs(p *domain.Posting) error {
	if !domain.IsMinorUnit(p.Amount) {
		p.Errors.Add("amount %s has sub-cent precision", p.Amount)
	}

	rate := p.VAT
	if rate != nil && p.Debit == p.Credit {
		p.Errors.Add("debit and credit account are both %s, booked without VAT", p.Debit)
		rate = nil
	}
	if rate == nil {
		return s.createGrossLegs(p)
	}

	bearer, err := s.vatBearerSide(p)
	if err != nil {
		p.Errors.Add("%s, booked without VAT", err)
		return s.createGrossLegs(p)
	}
	return s.createVATLegs(p, rate, bearer)
}

// createGrossLegs books the plain two-leg posting.
func (s *LedgerService) createGrossLegs(p *domain.Posting) error {
	debit := &domain.AccountLeg{Posting: p, Account: p.Debit, Relation: domain.RelationDebit, Amount: p.Amount}
	credit := &domain.AccountLeg{Posting: p, Account: p.Credit, Relation: domain.RelationCredit, Amount: p.Amount}
	debit.Opposing = credit
	credit.Opposing = debit
	return s.attach(p, debit, credit)
}

// createVATLegs splits the gross amount into a net leg plus a tax leg
// on the bearing side and one gross leg on the other side.
func (s *LedgerService) createVATLegs(p *domain.Posting, rate *domain.VATRate, bearer domain.Relation) error {
	vatAmount := s.cfg.VATScheme.Amount(p.Amount, rate.Rate)
	netAmount := p.Amount.Sub(vatAmount)

	bearingAccount, otherAccount := p.Debit, p.Credit
	otherRelation := domain.RelationCredit
	if bearer == domain.RelationCredit {
		bearingAccount, otherAccount = p.Credit, p.Debit
		otherRelation = domain.RelationDebit
	}

	net := &domain.AccountLeg{Posting: p, Account: bearingAccount, Relation: bearer, Amount: netAmount}
	vat := &domain.AccountLeg{Posting: p, Account: rate.Account, Relation: bearer, Amount: vatAmount, IsVAT: true}
	gross := &domain.AccountLeg{Posting: p, Account: otherAccount, Relation: otherRelation, Amount: p.Amount}

	net.Opposing = gross
	gross.Opposing = net
	vat.Opposing = gross
	net.VATLeg = vat
	gross.VATLeg = vat

	return s.attach(p, net, vat, gross)
}

func (s *LedgerService) attach(p *domain.Posting, legs ...*domain.AccountLeg) error {
	for _, leg := range legs {
		day, err := leg.Account.Days.Get(p.Date)
		if err != nil {
			return fmt.Errorf("booking %s: %w", p.Reference, err)
		}
		day.AddLeg(leg)
		p.AddLeg(leg)
	}
	return nil
}

// vatBearerSide picks the side whose leg carries the tax: the income
// statement side when exactly one exists; for asset-to-asset postings
// the lower account number. Everything else has no defined bearer.
func (s *LedgerService) vatBearerSide(p *domain.Posting) (domain.Relation, error) {
	debitIS := p.Debit.IsIncomeStatement()
	creditIS := p.Credit.IsIncomeStatement()
	switch {
	case debitIS && !creditIS:
		return domain.RelationDebit, nil
	case creditIS && !debitIS:
		return domain.RelationCredit, nil
	case p.Debit.Category == domain.CategoryAsset && p.Credit.Category == domain.CategoryAsset:
		if p.Debit.Number < p.Credit.Number {
			return domain.RelationDebit, nil
		}
		return domain.RelationCredit, nil
	default:
		return "", fmt.Errorf("no VAT side between %s and %s", p.Debit, p.Credit)
	}
}

// settle replays every account's legs in date order from its opening
// balance and records the end-of-day and closing balances.
func (s *LedgerService) settle(j *domain.Journal) error {
	for _, account := range s.cfg.AccountsOrdered {
		balance := account.OpeningBalance
		for _, day := range account.Days.Ordered() {
			for _, leg := range day.Legs() {
				balance = balance.Add(leg.SignedAmount())
			}
			if err := day.SetSettled(balance); err != nil {
				return err
			}
		}
		if err := account.SetClosingBalance(balance); err != nil {
			return err
		}
	}
	return nil
}
