package domain

import (
	"fmt"
	"strings"
)

// RunError is a run-level diagnostic: a problem that belongs to no
// particular day, rendered at the top of the journal output.
type RunError struct {
	Msg string
	// Line is the offending input line, echoed back below the message.
	Line string
	// CommentOut prefixes the echoed line with "# " so it no longer
	// trips the parser on the next run.
	CommentOut bool
}

// Journal is the aggregate of one run: all postings grouped by day,
// plus run-level diagnostics.
type Journal struct {
	Config *Config
	Days   *JournalDays

	runErrors []RunError
	profit    *Posting
}

// NewJournal builds an empty journal over the configured period and
// wires every account's day arena into it.
func NewJournal(cfg *Config) *Journal {
	days := NewJournalDays(cfg.Period)
	for _, a := range cfg.AccountsOrdered {
		a.Days = NewAccountDays(cfg.Period, days, a)
	}
	return &Journal{Config: cfg, Days: days}
}

// AddPosting files a posting under its day. An out-of-period date is
// returned as an error for the caller to attach where it belongs.
func (j *Journal) AddPosting(p *Posting) error {
	day, err := j.Days.Get(p.Date)
	if err != nil {
		return err
	}
	day.AddPosting(p)
	if j.Config.ProfitTemplate != nil && p.Template == j.Config.ProfitTemplate {
		j.profit = p
	}
	return nil
}

// ProfitPosting returns the posting booked through the profit template,
// or nil while the books are still open.
func (j *Journal) ProfitPosting() *Posting { return j.profit }

// NextFreeReference returns the first unused reference of the date.
func (j *Journal) NextFreeReference(d ValueDate) (string, error) {
	day, err := j.Days.Get(d)
	if err != nil {
		return "", err
	}
	return day.NextFreeReference(), nil
}

// LastPostingDate returns the date of the latest day holding postings.
func (j *Journal) LastPostingDate() (ValueDate, bool) {
	days := j.Days.Ordered()
	for i := len(days) - 1; i >= 0; i-- {
		if len(days[i].Postings()) > 0 {
			return days[i].Date, true
		}
	}
	return ValueDate{}, false
}

// AddRunError records a run-level message.
func (j *Journal) AddRunError(format string, args ...any) {
	j.runErrors = append(j.runErrors, RunError{Msg: fmt.Sprintf(format, args...)})
}

// AddRunErrorLine records a run-level error for an input line that
// could not be processed. The line is echoed back so nothing the user
// wrote is lost.
func (j *Journal) AddRunErrorLine(line string, err error, commentOut bool) {
	j.runErrors = append(j.runErrors, RunError{Msg: err.Error(), Line: line, CommentOut: commentOut})
}

// RunErrors returns the recorded run-level diagnostics.
func (j *Journal) RunErrors() []RunError { return j.runErrors }

// HasErrors reports whether any diagnostic was recorded anywhere in
// the journal.
func (j *Journal) HasErrors() bool {
	if len(j.runErrors) > 0 {
		return true
	}
	for _, day := range j.Days.Ordered() {
		if !day.Errors.Empty() {
			return true
		}
		for _, p := range day.Postings() {
			if !p.Errors.Empty() {
				return true
			}
		}
		for _, ad := range day.AccountDays() {
			if !ad.Errors.Empty() {
				return true
			}
		}
	}
	return false
}

// AppendText renders the whole journal: run errors first, then each
// day's postings followed by its account-day and day diagnostics.
func (j *Journal) AppendText(b *strings.Builder) {
	for _, e := range j.runErrors {
		b.WriteString(PrefixError)
		b.WriteString(" ")
		b.WriteString(e.Msg)
		b.WriteString("\n")
		if e.Line != "" {
			if e.CommentOut {
				b.WriteString(PrefixComment)
				b.WriteString(" ")
			}
			b.WriteString(e.Line)
			b.WriteString("\n")
		}
	}
	for _, day := range j.Days.Ordered() {
		for _, p := range day.Postings() {
			p.AppendText(b)
		}
		for _, ad := range day.AccountDays() {
			for _, m := range ad.Errors {
				fmt.Fprintf(b, "%s Konto %s: %s\n", PrefixError, ad.Account, m)
			}
		}
		for _, m := range day.Errors {
			b.WriteString(PrefixError)
			b.WriteString(" ")
			b.WriteString(m)
			b.WriteString("\n")
		}
	}
}

// Text renders the journal to a string.
func (j *Journal) Text() string {
	var b strings.Builder
	j.AppendText(&b)
	return b.String()
}
