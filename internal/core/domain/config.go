package domain

import "strings"

// ClosingLine is one line of a closing layout: an account whose balance
// is listed, or a subtitle grouping the lines below it.
type ClosingLine struct {
	Account *Account
	Title   string
}

// ClosingSection is an ordered list of closing lines.
type ClosingSection []ClosingLine

// ClosingStructure is one side-by-side closing statement. The left and
// right sections must sum to the same total: assets against
// liabilities, expenses against income.
type ClosingStructure struct {
	Title string
	Left  ClosingSection
	Right ClosingSection
}

// Config is the fully resolved run configuration. All name lookups are
// settled during resolution; services only ever see pointers.
type Config struct {
	Period *Period

	Accounts        map[int]*Account
	AccountsOrdered []*Account
	Templates       map[string]*PostingTemplate
	Tags            map[string]struct{}
	Swaps           map[string]*AccountSwap
	VATRates        map[string]*VATRate
	VATScheme       VATScheme
	ProposalRules   []*ProposalRule
	Banks           []*BankAccount

	// FallbackTemplate stands in when a journal line names an unknown
	// template, so parsing can continue.
	FallbackTemplate *PostingTemplate
	// ProfitTemplate books the period result; its presence in the
	// journal switches the closing validation on.
	ProfitTemplate   *PostingTemplate
	ClosingTemplates []*PostingTemplate

	BalanceSheet    ClosingStructure
	IncomeStatement ClosingStructure

	JournalFile string
	VoucherDir  string
	TraceDir    string
	BackupDir   string
	ReportFile  string
	SkipMarker  string
}

// Account looks up an account by number.
func (c *Config) Account(nr int) (*Account, bool) {
	a, ok := c.Accounts[nr]
	return a, ok
}

// Template looks up a posting template by name.
func (c *Config) Template(name string) (*PostingTemplate, bool) {
	t, ok := c.Templates[name]
	return t, ok
}

// VATRate looks up a VAT code.
func (c *Config) VATRate(code string) (*VATRate, bool) {
	r, ok := c.VATRates[code]
	return r, ok
}

// Swap looks up an account substitution by tag.
func (c *Config) Swap(tag string) (*AccountSwap, bool) {
	s, ok := c.Swaps[tag]
	return s, ok
}

// IsTag reports whether the token is a configured free tag.
func (c *Config) IsTag(token string) bool {
	_, ok := c.Tags[token]
	return ok
}

// MatchProposal returns the first proposal rule whose search text
// occurs in the bank description, or nil. Rule order is configuration
// order.
func (c *Config) MatchProposal(description string) *ProposalRule {
	for _, r := range c.ProposalRules {
		if strings.Contains(description, r.SearchText) {
			return r
		}
	}
	return nil
}
