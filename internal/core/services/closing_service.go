package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/ports"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

// ClosingService validates the closing of the books against the
// configured balance-sheet and income-statement layouts.
type ClosingService struct {
	cfg *domain.Config
}

// NewClosingService creates the closing validator for one run.
func NewClosingService(cfg *domain.Config) *ClosingService {
	return &ClosingService{cfg: cfg}
}

// CheckClosingPostings enforces the closing bookkeeping discipline
// before booking: once the journal reaches the period end a profit
// posting must exist, and while one exists every configured closing
// template must have been booked.
func (s *ClosingService) CheckClosingPostings(ctx context.Context, j *domain.Journal) {
	profit := j.ProfitPosting()
	if profit == nil {
		last, ok := j.LastPostingDate()
		if !ok || !last.Equal(s.cfg.Period.End()) {
			return
		}
		day, _ := j.Days.Peek(last)
		postings := day.Postings()
		postings[len(postings)-1].Errors.Add("journal reaches the period end but no posting uses the profit template '%s'",
			s.cfg.ProfitTemplate.Name)
		return
	}

	for _, template := range s.cfg.ClosingTemplates {
		if !s.templateBooked(j, template) {
			profit.Errors.Add("closing template '%s' not booked", template.Name)
		}
	}
}

func (s *ClosingService) templateBooked(j *domain.Journal, template *domain.PostingTemplate) bool {
	for _, day := range j.Days.Ordered() {
		for _, p := range day.Postings() {
			if p.Template == template {
				return true
			}
		}
	}
	return false
}

// Validate checks the zero-sum property of the closing layouts after
// booking. The opening balance sheet must always balance; the closing
// one only once the profit posting exists.
func (s *ClosingService) Validate(ctx context.Context, j *domain.Journal) {
	logger := logging.FromCtx(ctx)

	left, right := s.Walk(s.cfg.BalanceSheet, true, nil)
	if diff := left.Sub(right); !diff.IsZero() {
		j.AddRunError("opening balance sheet out of balance by %s", domain.FormatAmount(diff))
	}

	if j.ProfitPosting() == nil {
		logger.Debug("closing balance check skipped, books still open")
		return
	}
	left, right = s.Walk(s.cfg.BalanceSheet, false, nil)
	if diff := left.Sub(right); !diff.IsZero() {
		j.AddRunError("closing balance sheet out of balance by %s", domain.FormatAmount(diff))
	}
}

// Walk drives a renderer over one closing structure and returns the
// section totals. A nil renderer just computes the totals. Zero
// amounts are skipped in rendering but not in the sums.
func (s *ClosingService) Walk(structure domain.ClosingStructure, opening bool, r ports.ClosingRenderer) (left, right decimal.Decimal) {
	if r != nil {
		r.BeginStructure(structure.Title, opening)
	}
	left = s.walkSection(structure.Left, opening, r)
	right = s.walkSection(structure.Right, opening, r)
	if r != nil {
		r.EndStructure(left, right)
	}
	return left, right
}

func (s *ClosingService) walkSection(section domain.ClosingSection, opening bool, r ports.ClosingRenderer) decimal.Decimal {
	total := decimal.Zero

	// Group accounts under their preceding subtitle so the renderer
	// can print subtotals.
	i := 0
	for i < len(section) {
		title := ""
		if section[i].Account == nil {
			title = section[i].Title
			i++
		}
		subtotal := decimal.Zero
		start := i
		for i < len(section) && section[i].Account != nil {
			subtotal = subtotal.Add(s.amountFor(section[i].Account, opening))
			i++
		}
		total = total.Add(subtotal)
		if r == nil {
			continue
		}
		if title != "" {
			r.Subtitle(title, subtotal)
		}
		for _, line := range section[start:i] {
			amount := s.amountFor(line.Account, opening)
			if !amount.IsZero() {
				r.AccountLine(line.Account, amount)
			}
		}
	}
	return total
}

func (s *ClosingService) amountFor(a *domain.Account, opening bool) decimal.Decimal {
	if opening {
		return a.OpeningBalance
	}
	return a.ClosingBalance()
}
