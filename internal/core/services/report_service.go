package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cashbooklabs/cashbook/internal/apperrors"
	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/ports"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

// ReportService renders the booked ledger into plain-text account
// pages and the closing report. The renderers are ports so the walk
// stays independent of the output format.
type ReportService struct {
	cfg     *domain.Config
	closing *ClosingService
}

// NewReportService creates the report writer for one run.
func NewReportService(cfg *domain.Config, closing *ClosingService) *ReportService {
	return &ReportService{cfg: cfg, closing: closing}
}

// WriteAccountPages writes one text page per account that saw legs.
func (s *ReportService) WriteAccountPages(ctx context.Context, j *domain.Journal) error {
	logger := logging.FromCtx(ctx)
	if err := os.MkdirAll(s.cfg.TraceDir, 0o755); err != nil {
		return apperrors.NewConfigError("trace directory %s: %v", s.cfg.TraceDir, err)
	}

	pages := 0
	for _, account := range s.cfg.AccountsOrdered {
		days := account.Days.Ordered()
		if len(days) == 0 {
			continue
		}
		r := newTextBookRenderer()
		r.BeginAccount(account)
		for _, day := range days {
			for _, leg := range day.Legs() {
				r.Leg(leg)
			}
			r.EndOfDay(day)
		}
		r.EndAccount(account, account.ClosingBalance())

		path := filepath.Join(s.cfg.TraceDir, fmt.Sprintf("account_%d.txt", account.Number))
		if err := os.WriteFile(path, []byte(r.String()), 0o644); err != nil {
			return apperrors.NewConfigError("account page %s: %v", path, err)
		}
		pages++
	}
	logger.Debug("account pages written", "count", pages)
	return nil
}

// WriteClosingReport writes the opening and closing balance sheets and
// the income statement into the report file.
func (s *ReportService) WriteClosingReport(ctx context.Context, j *domain.Journal) error {
	r := newTextClosingRenderer()
	s.closing.Walk(s.cfg.BalanceSheet, true, r)
	s.closing.Walk(s.cfg.BalanceSheet, false, r)
	s.closing.Walk(s.cfg.IncomeStatement, false, r)

	if err := os.WriteFile(s.cfg.ReportFile, []byte(r.String()), 0o644); err != nil {
		return apperrors.NewConfigError("report file %s: %v", s.cfg.ReportFile, err)
	}
	logging.FromCtx(ctx).Debug("closing report written", "file", s.cfg.ReportFile)
	return nil
}

// textBookRenderer renders account pages as plain text.
type textBookRenderer struct {
	b strings.Builder
}

func newTextBookRenderer() *textBookRenderer { return &textBookRenderer{} }

var _ ports.BookRenderer = (*textBookRenderer)(nil)

func (r *textBookRenderer) BeginAccount(a *domain.Account) {
	fmt.Fprintf(&r.b, "Konto %s\n", a)
	fmt.Fprintf(&r.b, "  opening %12s\n", domain.FormatAmount(a.OpeningBalance))
}

func (r *textBookRenderer) Leg(l *domain.AccountLeg) {
	side := "D"
	if l.Relation == domain.RelationCredit {
		side = "C"
	}
	marker := " "
	if l.IsVAT {
		marker = "V"
	}
	fmt.Fprintf(&r.b, "  %-13s %s%s %12s  %s\n",
		l.Posting.Reference, side, marker, domain.FormatAmount(l.Amount), l.Posting.Comment)
}

func (r *textBookRenderer) EndOfDay(day *domain.AccountDay) {
	if settled, ok := day.Settled(); ok {
		fmt.Fprintf(&r.b, "  %s balance %12s\n", day.Date, domain.FormatAmount(settled))
	}
}

func (r *textBookRenderer) EndAccount(a *domain.Account, closing decimal.Decimal) {
	fmt.Fprintf(&r.b, "  closing %12s\n", domain.FormatAmount(closing))
}

func (r *textBookRenderer) String() string { return r.b.String() }

// textClosingRenderer renders closing structures as plain text.
type textClosingRenderer struct {
	b strings.Builder
}

func newTextClosingRenderer() *textClosingRenderer { return &textClosingRenderer{} }

var _ ports.ClosingRenderer = (*textClosingRenderer)(nil)

func (r *textClosingRenderer) BeginStructure(title string, opening bool) {
	kind := "closing"
	if opening {
		kind = "opening"
	}
	fmt.Fprintf(&r.b, "== %s (%s) ==\n", title, kind)
}

func (r *textClosingRenderer) Subtitle(title string, subtotal decimal.Decimal) {
	fmt.Fprintf(&r.b, "%s %12s\n", title, domain.FormatAmount(subtotal))
}

func (r *textClosingRenderer) AccountLine(a *domain.Account, amount decimal.Decimal) {
	fmt.Fprintf(&r.b, "  %-30s %12s\n", a, domain.FormatAmount(amount))
}

func (r *textClosingRenderer) EndStructure(left, right decimal.Decimal) {
	fmt.Fprintf(&r.b, "total %12s / %12s\n\n", domain.FormatAmount(left), domain.FormatAmount(right))
}

func (r *textClosingRenderer) String() string { return r.b.String() }
