package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/cashbooklabs/cashbook/internal/apperrors"
)

// dayArena is a fixed array over the period with lazy get-or-create.
// Out-of-period dates surface as data errors on access, never as
// silently grown storage.
type dayArena[T any] struct {
	period *Period
	days   []*T
}

func newDayArena[T any](p *Period) dayArena[T] {
	return dayArena[T]{period: p, days: make([]*T, p.Days())}
}

func (a *dayArena[T]) index(d ValueDate) (int, error) {
	if !d.Defined() {
		panic("domain: undefined value date used as day index")
	}
	if d.offset < 0 || d.offset >= len(a.days) {
		return 0, fmt.Errorf("%w: %s not in %s", apperrors.ErrOutOfPeriod, d, a.period)
	}
	return d.offset, nil
}

// JournalDays holds the journal's postings grouped by value date.
type JournalDays struct {
	arena dayArena[JournalDay]
}

// NewJournalDays builds the empty day arena for a period.
func NewJournalDays(p *Period) *JournalDays {
	return &JournalDays{arena: newDayArena[JournalDay](p)}
}

// Get returns the day for the date, creating it on first access.
func (ds *JournalDays) Get(d ValueDate) (*JournalDay, error) {
	i, err := ds.arena.index(d)
	if err != nil {
		return nil, err
	}
	if ds.arena.days[i] == nil {
		ds.arena.days[i] = &JournalDay{
			Date: d,
			refs: make(map[string]struct{}),
		}
	}
	return ds.arena.days[i], nil
}

// Peek returns the day if it exists, without creating it.
func (ds *JournalDays) Peek(d ValueDate) (*JournalDay, bool) {
	i, err := ds.arena.index(d)
	if err != nil || ds.arena.days[i] == nil {
		return nil, false
	}
	return ds.arena.days[i], true
}

// Ordered returns the existing days in ascending date order.
func (ds *JournalDays) Ordered() []*JournalDay {
	out := make([]*JournalDay, 0, len(ds.arena.days))
	for _, d := range ds.arena.days {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// JournalDay is one value date of the journal: its postings, the
// reference registry and day-level diagnostics.
type JournalDay struct {
	Date   ValueDate
	Errors Messages

	postings []*Posting
	refs     map[string]struct{}
	sorted   bool

	accountDays []*AccountDay
}

// AddPosting registers a posting. A reference already used on this day
// becomes an error attached to the posting; the posting stays.
func (d *JournalDay) AddPosting(p *Posting) {
	if _, dup := d.refs[p.Reference]; dup {
		p.Errors.Add("reference '%s' already used", p.Reference)
	} else {
		d.refs[p.Reference] = struct{}{}
	}
	d.postings = append(d.postings, p)
	d.sorted = false
}

// Postings returns the day's postings ordered by reference.
func (d *JournalDay) Postings() []*Posting {
	if !d.sorted {
		sort.SliceStable(d.postings, func(i, j int) bool {
			return CompareReferences(d.postings[i].Reference, d.postings[j].Reference) < 0
		})
		d.sorted = true
	}
	return d.postings
}

// PostingsFor returns the day's postings touching the account.
func (d *JournalDay) PostingsFor(a *Account) []*Posting {
	var out []*Posting
	for _, p := range d.Postings() {
		if p.Involves(a) {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the posting with the reference, or nil.
func (d *JournalDay) Find(ref string) *Posting {
	for _, p := range d.postings {
		if p.Reference == ref {
			return p
		}
	}
	return nil
}

// NextFreeReference returns the first reference of this day not yet in
// use.
func (d *JournalDay) NextFreeReference() string {
	for i := 0; ; i++ {
		ref := FormatReference(d.Date, i)
		if _, used := d.refs[ref]; !used {
			return ref
		}
	}
}

// AccountDays returns the account days attached to this date.
func (d *JournalDay) AccountDays() []*AccountDay {
	return d.accountDays
}

// AccountDays holds one account's legs and balances grouped by date.
type AccountDays struct {
	account *Account
	journal *JournalDays
	arena   dayArena[AccountDay]
}

// NewAccountDays builds the empty arena for an account, linked to the
// journal days so account-day errors render with their date.
func NewAccountDays(p *Period, journal *JournalDays, account *Account) *AccountDays {
	return &AccountDays{account: account, journal: journal, arena: newDayArena[AccountDay](p)}
}

// Get returns the account day for the date, creating it on first
// access and registering it with the journal day.
func (ds *AccountDays) Get(d ValueDate) (*AccountDay, error) {
	i, err := ds.arena.index(d)
	if err != nil {
		return nil, err
	}
	if ds.arena.days[i] == nil {
		jd, err := ds.journal.Get(d)
		if err != nil {
			return nil, err
		}
		day := &AccountDay{Account: ds.account, Date: d, JournalDay: jd}
		jd.accountDays = append(jd.accountDays, day)
		ds.arena.days[i] = day
	}
	return ds.arena.days[i], nil
}

// Peek returns the account day if it exists, without creating it.
func (ds *AccountDays) Peek(d ValueDate) (*AccountDay, bool) {
	i, err := ds.arena.index(d)
	if err != nil || ds.arena.days[i] == nil {
		return nil, false
	}
	return ds.arena.days[i], true
}

// Ordered returns the existing account days in ascending date order.
func (ds *AccountDays) Ordered() []*AccountDay {
	out := make([]*AccountDay, 0, len(ds.arena.days))
	for _, d := range ds.arena.days {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// AccountDay is one value date of one account: its legs, the settled
// balance from replay and the expected balance from the bank statement.
type AccountDay struct {
	Account    *Account
	Date       ValueDate
	JournalDay *JournalDay
	Errors     Messages

	legs   []*AccountLeg
	sorted bool

	settled     decimal.Decimal
	settledSet  bool
	expected    decimal.Decimal
	expectedSet bool
}

// AddLeg attaches a leg booked on this day.
func (d *AccountDay) AddLeg(l *AccountLeg) {
	d.legs = append(d.legs, l)
	d.sorted = false
}

// Legs returns the day's legs ordered by posting reference.
func (d *AccountDay) Legs() []*AccountLeg {
	if !d.sorted {
		sort.SliceStable(d.legs, func(i, j int) bool {
			return CompareReferences(d.legs[i].Posting.Reference, d.legs[j].Posting.Reference) < 0
		})
		d.sorted = true
	}
	return d.legs
}

// SetSettled records the end-of-day balance from replay, exactly once.
func (d *AccountDay) SetSettled(balance decimal.Decimal) error {
	if d.settledSet {
		return fmt.Errorf("account %d, %s: settled balance already set", d.Account.Number, d.Date)
	}
	d.settled = balance
	d.settledSet = true
	return nil
}

// Settled returns the replayed end-of-day balance if set.
func (d *AccountDay) Settled() (decimal.Decimal, bool) {
	return d.settled, d.settledSet
}

// SetExpected records the end-of-day balance claimed by the bank
// statement, exactly once.
func (d *AccountDay) SetExpected(balance decimal.Decimal) error {
	if d.expectedSet {
		return fmt.Errorf("account %d, %s: expected balance already set", d.Account.Number, d.Date)
	}
	d.expected = balance
	d.expectedSet = true
	return nil
}

// Expected returns the statement's end-of-day balance if set.
func (d *AccountDay) Expected() (decimal.Decimal, bool) {
	return d.expected, d.expectedSet
}
