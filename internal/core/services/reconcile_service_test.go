package services_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashbooklabs/cashbook/internal/apperrors"
	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/services"
)

func txn(t *testing.T, cfg *domain.Config, day, amount string, dir domain.Direction, desc string, lineNr int) *domain.BankTransaction {
	t.Helper()
	return &domain.BankTransaction{
		Date:        date(t, cfg, day),
		Amount:      decimal.RequireFromString(amount),
		Direction:   dir,
		Description: desc,
		LineNr:      lineNr,
		Comment:     "statement.csv: " + desc,
	}
}

func mainFeed(cfg *domain.Config, txns ...*domain.BankTransaction) services.BankFeed {
	return services.BankFeed{
		Account: cfg.Banks[0],
		Source:  &fakeBankSource{name: "statement.csv", txns: txns},
	}
}

func TestPrepareOrdersAndSequences(t *testing.T) {
	cfg := newTestConfig(t)
	domain.NewJournal(cfg)
	s := services.NewReconcileService(cfg)

	fr, err := s.Prepare(context.Background(), mainFeed(cfg,
		txn(t, cfg, "2024-01-06", "20.00", domain.DirectionDebit, "b", 2),
		txn(t, cfg, "2024-01-05", "10.00", domain.DirectionDebit, "a", 1),
		txn(t, cfg, "2024-01-06", "30.00", domain.DirectionCredit, "c", 3),
	))
	require.NoError(t, err)

	require.Len(t, fr.Txns, 3)
	assert.Equal(t, "2024-01-05_001", fr.Txns[0].Key())
	assert.Equal(t, "2024-01-06_001", fr.Txns[1].Key())
	assert.Equal(t, "2024-01-06_002", fr.Txns[2].Key())

	bank := cfg.Accounts[1020]
	day5, ok := bank.Days.Peek(date(t, cfg, "2024-01-05"))
	require.True(t, ok)
	expected, ok := day5.Expected()
	require.True(t, ok)
	assert.Equal(t, "9990.00", domain.FormatAmount(expected))

	day6, ok := bank.Days.Peek(date(t, cfg, "2024-01-06"))
	require.True(t, ok)
	expected, ok = day6.Expected()
	require.True(t, ok)
	assert.Equal(t, "10000.00", domain.FormatAmount(expected))
}

func TestPrepareDropsOutOfPeriodRecords(t *testing.T) {
	cfg := newTestConfig(t)
	domain.NewJournal(cfg)
	s := services.NewReconcileService(cfg)

	outside := txn(t, cfg, "2024-01-05", "10.00", domain.DirectionDebit, "x", 1)
	outside.Date = outside.Date.AddDays(-10)

	fr, err := s.Prepare(context.Background(), mainFeed(cfg, outside))
	require.NoError(t, err)
	assert.Empty(t, fr.Txns)
}

func TestPrepareRejectsOpeningBalanceMismatch(t *testing.T) {
	cfg := newTestConfig(t)
	domain.NewJournal(cfg)
	s := services.NewReconcileService(cfg)

	feed := services.BankFeed{
		Account: cfg.Banks[0],
		Source: &fakeBankSource{
			name:    "statement.csv",
			opening: decimal.NewFromInt(9999),
			hasOpen: true,
		},
	}
	_, err := s.Prepare(context.Background(), feed)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Contains(t, err.Error(), "opening balance")
}

func TestMatchByAmountBindsAndComments(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	posting := addPosting(t, cfg, j, "2024-01-05a b 100.00 miete")
	s := services.NewReconcileService(cfg)

	record := txn(t, cfg, "2024-01-05", "100.00", domain.DirectionDebit, "rent transfer", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))

	assert.Same(t, record, posting.Bank)
	assert.Equal(t, "2024-01-05a", record.MatchedRef)
	require.Len(t, posting.CommentsAbove, 1)
	assert.Equal(t, "statement.csv: rent transfer", posting.CommentsAbove[0])
}

func TestMatchIsSignInsensitive(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	posting := addPosting(t, cfg, j, "2024-01-05a b -53.80 verkauf")
	s := services.NewReconcileService(cfg)

	record := txn(t, cfg, "2024-01-05", "53.80", domain.DirectionDebit, "refund", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))

	assert.Same(t, record, posting.Bank)
}

func TestAmbiguousGroupPersistsToMappingFile(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	p1 := addPosting(t, cfg, j, "2024-01-05a b 50.00 miete first")
	p2 := addPosting(t, cfg, j, "2024-01-05b b 50.00 miete second")
	s := services.NewReconcileService(cfg)

	t1 := txn(t, cfg, "2024-01-05", "50.00", domain.DirectionDebit, "one", 1)
	t2 := txn(t, cfg, "2024-01-05", "50.00", domain.DirectionDebit, "two", 2)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, t1, t2))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))
	require.NoError(t, s.WriteMappingFile(context.Background(), fr))

	assert.Same(t, t1, p1.Bank)
	assert.Same(t, t2, p2.Bank)

	content, err := os.ReadFile(filepath.Join(cfg.TraceDir, "cashbook_mapping_main.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05_001 2024-01-05a\n2024-01-05_002 2024-01-05b\n", string(content))
}

func TestOppositeDirectionsShareAmbiguityGroup(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	p1 := addPosting(t, cfg, j, "2024-01-05a b 50.00 miete")
	p2 := addPosting(t, cfg, j, "2024-01-05b b -50.00 verkauf")
	s := services.NewReconcileService(cfg)

	// Matching ignores the direction, so a debit and a credit over the
	// same amount are just as ambiguous as two debits.
	t1 := txn(t, cfg, "2024-01-05", "50.00", domain.DirectionDebit, "out", 1)
	t2 := txn(t, cfg, "2024-01-05", "50.00", domain.DirectionCredit, "in", 2)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, t1, t2))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))
	require.NoError(t, s.WriteMappingFile(context.Background(), fr))

	assert.Same(t, t1, p1.Bank)
	assert.Same(t, t2, p2.Bank)

	content, err := os.ReadFile(filepath.Join(cfg.TraceDir, "cashbook_mapping_main.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05_001 2024-01-05a\n2024-01-05_002 2024-01-05b\n", string(content))
}

func TestUnambiguousMatchIsNotPersisted(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	addPosting(t, cfg, j, "2024-01-05a b 100.00 miete")
	s := services.NewReconcileService(cfg)

	fr, err := s.Prepare(context.Background(), mainFeed(cfg,
		txn(t, cfg, "2024-01-05", "100.00", domain.DirectionDebit, "rent", 1)))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))
	require.NoError(t, s.WriteMappingFile(context.Background(), fr))

	content, err := os.ReadFile(filepath.Join(cfg.TraceDir, "cashbook_mapping_main.txt"))
	require.NoError(t, err)
	assert.Empty(t, string(content))
}

func TestMappingFileReplayBindsAcrossRuns(t *testing.T) {
	cfg := newTestConfig(t)
	path := filepath.Join(cfg.TraceDir, "cashbook_mapping_main.txt")
	require.NoError(t, os.WriteFile(path, []byte("2024-01-05_002 2024-01-05a\n"), 0o644))

	j := domain.NewJournal(cfg)
	posting := addPosting(t, cfg, j, "2024-01-05a b 50.00 miete")
	s := services.NewReconcileService(cfg)

	t1 := txn(t, cfg, "2024-01-05", "50.00", domain.DirectionDebit, "one", 1)
	t2 := txn(t, cfg, "2024-01-05", "50.00", domain.DirectionDebit, "two", 2)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, t1, t2))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))

	// The mapping pins the second record; the heuristic must not
	// steal the posting for the first one.
	assert.Same(t, t2, posting.Bank)
	assert.Equal(t, "2024-01-05a", t2.MatchedRef)
	assert.False(t, t1.Bound())
}

func TestMappingReplayFlagsAmountMismatch(t *testing.T) {
	cfg := newTestConfig(t)
	path := filepath.Join(cfg.TraceDir, "cashbook_mapping_main.txt")
	require.NoError(t, os.WriteFile(path, []byte("2024-01-05_001 2024-01-05a\n"), 0o644))

	j := domain.NewJournal(cfg)
	posting := addPosting(t, cfg, j, "2024-01-05a b 60.00 miete")
	s := services.NewReconcileService(cfg)

	fr, err := s.Prepare(context.Background(), mainFeed(cfg,
		txn(t, cfg, "2024-01-05", "50.00", domain.DirectionDebit, "one", 1)))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))

	assert.Same(t, fr.Txns[0], posting.Bank)
	require.Len(t, posting.Errors, 1)
	assert.Contains(t, posting.Errors[0], "50.00")
	assert.Contains(t, posting.Errors[0], "60.00")
}

func TestMappingReplayClearsStaleBinding(t *testing.T) {
	cfg := newTestConfig(t)
	path := filepath.Join(cfg.TraceDir, "cashbook_mapping_main.txt")
	require.NoError(t, os.WriteFile(path, []byte("2024-01-05_001 2024-01-05z\n"), 0o644))

	j := domain.NewJournal(cfg)
	posting := addPosting(t, cfg, j, "2024-01-05a b 50.00 miete")
	s := services.NewReconcileService(cfg)

	record := txn(t, cfg, "2024-01-05", "50.00", domain.DirectionDebit, "one", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))

	// Stale mapping entry cleared, heuristic rebinds by amount.
	assert.Same(t, record, posting.Bank)
	assert.Equal(t, "2024-01-05a", record.MatchedRef)
}

func TestMalformedMappingLineIsFatal(t *testing.T) {
	cfg := newTestConfig(t)
	path := filepath.Join(cfg.TraceDir, "cashbook_mapping_main.txt")
	require.NoError(t, os.WriteFile(path, []byte("justonething\n"), 0o644))

	j := domain.NewJournal(cfg)
	s := services.NewReconcileService(cfg)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg))
	require.NoError(t, err)

	err = s.Match(context.Background(), j, fr)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestOrphanPostingGetsError(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	posting := addPosting(t, cfg, j, "2024-01-05a b 100.00 miete")
	s := services.NewReconcileService(cfg)

	fr, err := s.Prepare(context.Background(), mainFeed(cfg))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))
	require.NoError(t, s.AddProposals(context.Background(), j, fr))

	require.Len(t, posting.Errors, 1)
	assert.Contains(t, posting.Errors[0], "no bank record")
}

func TestProposalFromFallbackTemplate(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	s := services.NewReconcileService(cfg)

	record := txn(t, cfg, "2024-01-05", "120.00", domain.DirectionCredit, "invoice 17 paid", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))
	require.NoError(t, s.AddProposals(context.Background(), j, fr))

	day, ok := j.Days.Peek(date(t, cfg, "2024-01-05"))
	require.True(t, ok)
	postings := day.Postings()
	require.Len(t, postings, 1)
	p := postings[0]

	// Money in on the bank side picks the debit fallback.
	assert.Equal(t, domain.VerbProposal, p.Verb)
	assert.Same(t, cfg.Templates["verkauf"], p.Template)
	assert.Equal(t, "120.00", domain.FormatAmount(p.Amount))
	assert.Equal(t, "2024-01-05a", p.Reference)
	assert.Same(t, record, p.Bank)
	assert.Equal(t, "2024-01-05a", record.MatchedRef)
	assert.Equal(t, "2024-01-05a vorschlag 120.00 verkauf invoice 17 paid", p.Line)
	require.Len(t, p.CommentsAbove, 1)
	assert.Equal(t, "vorschlag: statement.csv: invoice 17 paid", p.CommentsAbove[0])
}

func TestProposalKeepsSignWhenTemplateMatchesFlow(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	s := services.NewReconcileService(cfg)

	// Money out picks the credit fallback, which already drains the
	// bank side, so the amount keeps its sign.
	record := txn(t, cfg, "2024-01-05", "80.00", domain.DirectionDebit, "rent february", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))
	require.NoError(t, s.AddProposals(context.Background(), j, fr))

	day, ok := j.Days.Peek(date(t, cfg, "2024-01-05"))
	require.True(t, ok)
	p := day.Postings()[0]
	assert.Same(t, cfg.Templates["miete"], p.Template)
	assert.Equal(t, "80.00", domain.FormatAmount(p.Amount))
	assert.Equal(t, "2024-01-05a vorschlag 80.00 miete Miete", p.Line)
}

func TestProposalNegatesAmountWhenFlowIsReversed(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ProposalRules = []*domain.ProposalRule{
		{SearchText: "LANDLORD", Instruction: "miete", Template: cfg.Templates["miete"], Text: "Miete"},
	}
	j := domain.NewJournal(cfg)
	s := services.NewReconcileService(cfg)

	// The rule's template takes money out of the bank account, but
	// this record is a refund coming in.
	record := txn(t, cfg, "2024-01-05", "80.00", domain.DirectionCredit, "LANDLORD deposit refund", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))
	require.NoError(t, s.AddProposals(context.Background(), j, fr))

	day, ok := j.Days.Peek(date(t, cfg, "2024-01-05"))
	require.True(t, ok)
	p := day.Postings()[0]
	assert.Equal(t, "-80.00", domain.FormatAmount(p.Amount))
	assert.Equal(t, "2024-01-05a vorschlag -80.00 miete Miete", p.Line)
}

func TestProposalFromRuleBooksDirectly(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ProposalRules = []*domain.ProposalRule{
		{SearchText: "LANDLORD", Instruction: "miete", Template: cfg.Templates["miete"], Text: "Miete", DirectBook: true},
	}
	j := domain.NewJournal(cfg)
	s := services.NewReconcileService(cfg)

	record := txn(t, cfg, "2024-01-05", "80.00", domain.DirectionDebit, "LANDLORD standing order", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)
	require.NoError(t, s.Match(context.Background(), j, fr))
	require.NoError(t, s.AddProposals(context.Background(), j, fr))

	day, ok := j.Days.Peek(date(t, cfg, "2024-01-05"))
	require.True(t, ok)
	p := day.Postings()[0]
	assert.Equal(t, domain.VerbBook, p.Verb)
	assert.Equal(t, "2024-01-05a b 80.00 miete Miete", p.Line)
}

func TestValidateBalancesFlagsDiscrepancy(t *testing.T) {
	cfg := newTestConfig(t)
	j := domain.NewJournal(cfg)
	addPosting(t, cfg, j, "2024-01-05a b 100.00 miete")
	s := services.NewReconcileService(cfg)

	// Statement says 120 went out; the journal books 100.
	record := txn(t, cfg, "2024-01-05", "120.00", domain.DirectionDebit, "rent", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)

	require.NoError(t, services.NewLedgerService(cfg).Book(context.Background(), j))
	s.ValidateBalances(context.Background(), fr)

	bank := cfg.Accounts[1020]
	day, ok := bank.Days.Peek(date(t, cfg, "2024-01-05"))
	require.True(t, ok)
	require.Len(t, day.Errors, 1)
	assert.Contains(t, day.Errors[0], "9900.00")
	assert.Contains(t, day.Errors[0], "9880.00")
	assert.Contains(t, day.Errors[0], "20.00")
	assert.Contains(t, day.Errors[0], "10.00")
}

func TestValidateBalancesSkippable(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Banks[0].CheckBalance = false
	j := domain.NewJournal(cfg)
	addPosting(t, cfg, j, "2024-01-05a b 100.00 miete")
	s := services.NewReconcileService(cfg)

	record := txn(t, cfg, "2024-01-05", "120.00", domain.DirectionDebit, "rent", 1)
	fr, err := s.Prepare(context.Background(), mainFeed(cfg, record))
	require.NoError(t, err)
	require.NoError(t, services.NewLedgerService(cfg).Book(context.Background(), j))
	s.ValidateBalances(context.Background(), fr)

	day, ok := cfg.Accounts[1020].Days.Peek(date(t, cfg, "2024-01-05"))
	require.True(t, ok)
	assert.Empty(t, day.Errors)
}
