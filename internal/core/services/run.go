package services

import (
	"context"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/ports"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

// Runner orchestrates one engine run: read the journal and vouchers,
// reconcile every bank feed, book, validate the closing, write the
// reports and rewrite the journal.
//
// The phase order is part of the contract: proposals of an earlier
// feed are visible to later feeds, booking happens only once all
// postings exist, and balance validation needs the booked ledger.
type Runner struct {
	cfg       *domain.Config
	store     ports.JournalStore
	journal   *JournalService
	vouchers  *VoucherService
	reconcile *ReconcileService
	ledger    *LedgerService
	closing   *ClosingService
	reports   *ReportService
}

// NewRunner wires the services of one run around the journal store.
func NewRunner(cfg *domain.Config, store ports.JournalStore) *Runner {
	parser := NewParser(cfg)
	closing := NewClosingService(cfg)
	return &Runner{
		cfg:       cfg,
		store:     store,
		journal:   NewJournalService(cfg, parser),
		vouchers:  NewVoucherService(cfg, parser),
		reconcile: NewReconcileService(cfg),
		ledger:    NewLedgerService(cfg),
		closing:   closing,
		reports:   NewReportService(cfg, closing),
	}
}

// Run executes the whole engine pass and returns the processed
// journal. A returned error is fatal: nothing has been written back.
func (r *Runner) Run(ctx context.Context, feeds []BankFeed) (*domain.Journal, error) {
	logger := logging.FromCtx(ctx)

	j, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var runs []*FeedRun
	for _, feed := range feeds {
		fr, err := r.reconcile.Prepare(ctx, feed)
		if err != nil {
			return nil, err
		}
		if err := r.reconcile.WriteBalanceTrace(ctx, fr); err != nil {
			return nil, err
		}
		if err := r.reconcile.Match(ctx, j, fr); err != nil {
			return nil, err
		}
		if err := r.reconcile.WriteMappingFile(ctx, fr); err != nil {
			return nil, err
		}
		runs = append(runs, fr)
	}
	for _, fr := range runs {
		if err := r.reconcile.AddProposals(ctx, j, fr); err != nil {
			return nil, err
		}
	}

	r.closing.CheckClosingPostings(ctx, j)
	if err := r.ledger.Book(ctx, j); err != nil {
		return nil, err
	}
	for _, fr := range runs {
		r.reconcile.ValidateBalances(ctx, fr)
	}
	r.closing.Validate(ctx, j)

	if err := r.reports.WriteAccountPages(ctx, j); err != nil {
		return nil, err
	}
	if err := r.reports.WriteClosingReport(ctx, j); err != nil {
		return nil, err
	}
	if err := r.store.Write(j.Text()); err != nil {
		return nil, err
	}

	logger.Info("run finished", "errors", j.HasErrors())
	return j, nil
}

// Check executes the parse and voucher phases only, without touching
// any file. Used by the check command for a quick sanity pass.
func (r *Runner) Check(ctx context.Context) (*domain.Journal, error) {
	return r.load(ctx)
}

func (r *Runner) load(ctx context.Context) (*domain.Journal, error) {
	j := domain.NewJournal(r.cfg)
	content, err := r.store.Read()
	if err != nil {
		return nil, err
	}
	r.journal.Read(ctx, j, content)
	if err := r.vouchers.Scan(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}
