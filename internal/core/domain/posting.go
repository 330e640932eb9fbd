package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Verb is the booking keyword of a journal line.
type Verb string

const (
	// VerbBook marks a confirmed posting.
	VerbBook Verb = "b"
	// VerbProposal marks an engine-generated suggestion awaiting
	// confirmation. Dropped and regenerated on every run.
	VerbProposal Verb = "vorschlag"
	// VerbVoucher marks a posting materialized from a voucher file
	// name. Never re-read from the journal.
	VerbVoucher Verb = "f"
)

// Diagnostic line prefixes of the journal format.
const (
	PrefixTodo    = "todo"
	PrefixError   = "fehler"
	PrefixComment = "#"
)

// Posting is one journal entry: a gross amount booked from a credit to
// a debit account, optionally split by VAT during leg creation.
type Posting struct {
	ID        string
	Reference string
	Date      ValueDate
	Verb      Verb
	Amount    decimal.Decimal
	Template  *PostingTemplate
	Debit     *Account
	Credit    *Account
	VAT       *VATRate
	Tags      []string
	Comment   string

	Todos         Messages
	Errors        Messages
	CommentsAbove Messages

	// Bank is the statement record this posting settles, if any.
	Bank *BankTransaction

	// Line is the stored journal text; unmodified postings round-trip
	// byte-identically through it.
	Line string

	legs []*AccountLeg
}

// Involves reports whether the account sits on either side.
func (p *Posting) Involves(a *Account) bool {
	return p.Debit == a || p.Credit == a
}

// AddLeg attaches an account leg created during booking.
func (p *Posting) AddLeg(l *AccountLeg) { p.legs = append(p.legs, l) }

// Legs returns the account legs in creation order.
func (p *Posting) Legs() []*AccountLeg { return p.legs }

// AppendText renders the posting for the journal file: todo lines,
// error lines, comment lines, then the stored line itself.
func (p *Posting) AppendText(b *strings.Builder) {
	for _, m := range p.Todos {
		b.WriteString(PrefixTodo)
		b.WriteString(" ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	for _, m := range p.Errors {
		b.WriteString(PrefixError)
		b.WriteString(" ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	for _, m := range p.CommentsAbove {
		b.WriteString(PrefixComment)
		b.WriteString(" ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	b.WriteString(p.Line)
	b.WriteString("\n")
}
