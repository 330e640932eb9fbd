package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashbooklabs/cashbook/internal/apperrors"
	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/ports"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

var mappingLinePattern = regexp.MustCompile(`^(\S+)\s+(\S+)$`)

// BankFeed pairs a configured bank account with the source delivering
// its statement records.
type BankFeed struct {
	Account *domain.BankAccount
	Source  ports.BankSource
}

// FeedRun is the per-feed working state of one reconciliation run.
type FeedRun struct {
	Feed BankFeed
	Txns []*domain.BankTransaction
}

// ReconcileService matches bank statement records against journal
// postings and persists ambiguous matches across runs.
type ReconcileService struct {
	cfg *domain.Config
}

// NewReconcileService creates the reconciliation engine for one run.
func NewReconcileService(cfg *domain.Config) *ReconcileService {
	return &ReconcileService{cfg: cfg}
}

// Prepare reads and orders the feed's records, assigns per-day
// sequence numbers, verifies the authoritative opening balance and
// records the expected end-of-day balances on the bank account.
func (s *ReconcileService) Prepare(ctx context.Context, feed BankFeed) (*FeedRun, error) {
	logger := logging.FromCtx(ctx)

	all, err := feed.Source.Transactions()
	if err != nil {
		return nil, apperrors.NewConfigError("bank source %s: %v", feed.Source.Name(), err)
	}

	var txns []*domain.BankTransaction
	for _, t := range all {
		if s.cfg.Period.Contains(t.Date) {
			txns = append(txns, t)
		}
	}
	sort.SliceStable(txns, func(i, j int) bool {
		if c := txns[i].Date.Compare(txns[j].Date); c != 0 {
			return c < 0
		}
		return txns[i].LineNr < txns[j].LineNr
	})

	seq := 0
	for i, t := range txns {
		if i > 0 && t.Date.Equal(txns[i-1].Date) {
			seq++
		} else {
			seq = 1
		}
		t.Seq = seq
	}

	account := feed.Account.Account
	if opening, ok := feed.Source.OpeningBalance(); ok && !opening.Equal(account.OpeningBalance) {
		return nil, apperrors.NewConfigError(
			"bank source %s: opening balance %s does not match configured %s for account %d",
			feed.Source.Name(), domain.FormatAmount(opening),
			domain.FormatAmount(account.OpeningBalance), account.Number)
	}

	if err := s.recordExpectedBalances(account, txns); err != nil {
		return nil, err
	}

	logger.Info("bank feed prepared",
		"feed", feed.Account.Name, "source", feed.Source.Name(), "transactions", len(txns))
	return &FeedRun{Feed: feed, Txns: txns}, nil
}

// recordExpectedBalances walks the ordered records and stores the
// statement's end-of-day balance on each day boundary.
func (s *ReconcileService) recordExpectedBalances(account *domain.Account, txns []*domain.BankTransaction) error {
	balance := account.OpeningBalance
	for i, t := range txns {
		balance = balance.Add(t.SignedAmount())
		last := i == len(txns)-1
		if last || !txns[i+1].Date.Equal(t.Date) {
			day, err := account.Days.Get(t.Date)
			if err != nil {
				return err
			}
			if err := day.SetExpected(balance); err != nil {
				return err
			}
		}
	}
	return nil
}

// Match binds the feed's records to journal postings: first by
// replaying the persisted mapping file, then heuristically by amount.
func (s *ReconcileService) Match(ctx context.Context, j *domain.Journal, fr *FeedRun) error {
	mapping, err := s.readMappingFile(fr.Feed.Account.Name)
	if err != nil {
		return err
	}
	for _, t := range fr.Txns {
		if ref, ok := mapping[t.Key()]; ok {
			t.MatchedRef = ref
		}
	}
	s.confirmMappedMatches(j, fr)
	s.matchByAmount(j, fr)
	return nil
}

// confirmMappedMatches verifies every pre-bound record against the
// journal. A binding that no longer holds is cleared so the heuristic
// can try again.
func (s *ReconcileService) confirmMappedMatches(j *domain.Journal, fr *FeedRun) {
	account := fr.Feed.Account.Account
	for _, t := range fr.Txns {
		if !t.Bound() {
			continue
		}
		posting := s.findByReference(j, account, t.MatchedRef)
		if posting == nil || posting.Bank != nil {
			t.MatchedRef = ""
			continue
		}
		posting.Bank = t
		posting.CommentsAbove.Add("%s", t.Comment)
		if !t.MatchesAmount(posting.Amount) {
			posting.Errors.Add("bank record %s has amount %s, posting has %s",
				t.Key(), domain.FormatAmount(t.Amount), domain.FormatAmount(posting.Amount))
		}
		if !posting.Date.Equal(t.Date) {
			posting.Errors.Add("bank record %s dated %s, posting dated %s", t.Key(), t.Date, posting.Date)
		}
	}
}

// findByReference locates a posting by its reference. The date is
// encoded in the reference itself.
func (s *ReconcileService) findByReference(j *domain.Journal, account *domain.Account, ref string) *domain.Posting {
	m := refPattern.FindStringSubmatch(ref)
	if m == nil {
		return nil
	}
	date, err := s.cfg.Period.Parse(m[1])
	if err != nil || !s.cfg.Period.Contains(date) {
		return nil
	}
	day, ok := j.Days.Peek(date)
	if !ok {
		return nil
	}
	posting := day.Find(ref)
	if posting == nil || !posting.Involves(account) {
		return nil
	}
	return posting
}

// matchByAmount binds each unbound record to the first unbound posting
// of the same day and account with the same absolute amount.
func (s *ReconcileService) matchByAmount(j *domain.Journal, fr *FeedRun) {
	account := fr.Feed.Account.Account
	for _, t := range fr.Txns {
		if t.Bound() {
			continue
		}
		day, ok := j.Days.Peek(t.Date)
		if !ok {
			continue
		}
		for _, posting := range day.PostingsFor(account) {
			if posting.Bank != nil || !t.MatchesAmount(posting.Amount) {
				continue
			}
			posting.Bank = t
			t.MatchedRef = posting.Reference
			posting.CommentsAbove.Add("%s", t.Comment)
			break
		}
	}
}

// WriteMappingFile persists the bindings that the heuristic could not
// reproduce on its own: groups of records sharing day and amount.
func (s *ReconcileService) WriteMappingFile(ctx context.Context, fr *FeedRun) error {
	groups := make(map[string]int)
	for _, t := range fr.Txns {
		groups[groupKey(t)]++
	}

	var b strings.Builder
	written := make(map[string]struct{})
	for _, t := range fr.Txns {
		if !t.Bound() || groups[groupKey(t)] < 2 {
			continue
		}
		if _, dup := written[t.MatchedRef]; dup {
			continue
		}
		written[t.MatchedRef] = struct{}{}
		fmt.Fprintf(&b, "%s %s\n", t.Key(), t.MatchedRef)
	}

	path := s.mappingPath(fr.Feed.Account.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewConfigError("mapping file %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return apperrors.NewConfigError("mapping file %s: %v", path, err)
	}
	logging.FromCtx(ctx).Debug("mapping file written", "feed", fr.Feed.Account.Name, "entries", len(written))
	return nil
}

// groupKey ignores the direction: matching is sign-insensitive, so a
// debit and a credit over the same amount are mutually ambiguous.
func groupKey(t *domain.BankTransaction) string {
	return fmt.Sprintf("%s|%s", t.Date, domain.FormatAmount(t.Amount))
}

// AddProposals turns the remaining unbound records into proposed
// journal lines and flags journal postings of this account that no
// record settles.
func (s *ReconcileService) AddProposals(ctx context.Context, j *domain.Journal, fr *FeedRun) error {
	if fr.Feed.Account.AddProposals {
		for _, t := range fr.Txns {
			if t.Bound() {
				continue
			}
			if err := s.propose(j, fr.Feed.Account, t); err != nil {
				return err
			}
		}
	}

	account := fr.Feed.Account.Account
	for _, day := range j.Days.Ordered() {
		for _, posting := range day.PostingsFor(account) {
			if posting.Bank == nil {
				posting.Errors.Add("no bank record of %s settles this posting", fr.Feed.Account.Name)
			}
		}
	}
	return nil
}

// propose synthesizes a journal line for an unmatched bank record. The
// first rule whose search text occurs in the description wins;
// otherwise the account's fallback template for the money direction.
func (s *ReconcileService) propose(j *domain.Journal, bank *domain.BankAccount, t *domain.BankTransaction) error {
	ref, err := j.NextFreeReference(t.Date)
	if err != nil {
		return err
	}

	verb := domain.VerbProposal
	var template *domain.PostingTemplate
	var instruction, text string
	if rule := s.cfg.MatchProposal(t.Description); rule != nil {
		template = rule.Template
		instruction = rule.Instruction
		text = rule.Text
		if rule.DirectBook {
			verb = domain.VerbBook
		}
	} else {
		template = bank.Account.FallbackCredit
		if t.Direction == domain.DirectionCredit {
			template = bank.Account.FallbackDebit
		}
		instruction = template.Name
		text = template.Text
	}

	comment := ""
	if text == "" {
		comment = t.Description
	}

	amount := t.Amount
	if (template.Credit == bank.Account) == (t.Direction == domain.DirectionCredit) {
		amount = amount.Neg()
	}

	posting := &domain.Posting{
		ID:        uuid.NewString(),
		Reference: ref,
		Date:      t.Date,
		Verb:      verb,
		Amount:    amount,
		Template:  template,
		Debit:     template.Debit,
		Credit:    template.Credit,
		VAT:       template.VAT,
		Comment:   comment,
		Bank:      t,
		Line:      proposalLine(ref, verb, amount, instruction, text, comment),
	}
	posting.CommentsAbove.Add("vorschlag: %s", t.Comment)
	t.MatchedRef = ref
	return j.AddPosting(posting)
}

func proposalLine(ref string, verb domain.Verb, amount decimal.Decimal, parts ...string) string {
	fields := []string{ref, string(verb), domain.FormatAmount(amount)}
	for _, p := range parts {
		if p != "" {
			fields = append(fields, p)
		}
	}
	return strings.Join(fields, " ")
}

// ValidateBalances compares the replayed end-of-day balances against
// the statement's expected balances.
func (s *ReconcileService) ValidateBalances(ctx context.Context, fr *FeedRun) {
	if !fr.Feed.Account.CheckBalance {
		return
	}
	account := fr.Feed.Account.Account
	for _, day := range account.Days.Ordered() {
		expected, ok := day.Expected()
		if !ok {
			continue
		}
		settled, ok := day.Settled()
		if !ok || settled.Equal(expected) {
			continue
		}
		diff := settled.Sub(expected)
		day.Errors.Add("end-of-day balance %s does not match bank statement %s (difference %s, half %s)",
			domain.FormatAmount(settled), domain.FormatAmount(expected),
			domain.FormatAmount(diff), domain.FormatAmount(diff.Div(decimal.NewFromInt(2))))
	}
}

// WriteBalanceTrace dumps the statement's expected end-of-day balances
// for manual cross-checking.
func (s *ReconcileService) WriteBalanceTrace(ctx context.Context, fr *FeedRun) error {
	account := fr.Feed.Account.Account
	var b strings.Builder
	for _, day := range account.Days.Ordered() {
		if expected, ok := day.Expected(); ok {
			fmt.Fprintf(&b, "%s %s\n", day.Date, domain.FormatAmount(expected))
		}
	}
	path := filepath.Join(s.cfg.TraceDir, fmt.Sprintf("day_balance_%d.txt", account.Number))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewConfigError("balance trace %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return apperrors.NewConfigError("balance trace %s: %v", path, err)
	}
	return nil
}

func (s *ReconcileService) mappingPath(feedName string) string {
	return filepath.Join(s.cfg.TraceDir, fmt.Sprintf("cashbook_mapping_%s.txt", feedName))
}

// readMappingFile loads the persisted key-to-reference bindings. A
// missing file is an empty mapping; a malformed line is fatal because
// silently dropping a persisted binding could rebind records wrongly.
func (s *ReconcileService) readMappingFile(feedName string) (map[string]string, error) {
	path := s.mappingPath(feedName)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, apperrors.NewConfigError("mapping file %s: %v", path, err)
	}

	mapping := make(map[string]string)
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := mappingLinePattern.FindStringSubmatch(line)
		if m == nil {
			return nil, apperrors.NewConfigErrorAt(path, i+1, "malformed mapping line %q", line)
		}
		mapping[m[1]] = m[2]
	}
	return mapping, nil
}
