package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashbooklabs/cashbook/internal/apperrors"
	"github.com/cashbooklabs/cashbook/internal/core/domain"
)

var (
	refPattern    = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})([a-z]+)$`)
	linePattern   = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(\S+)\s+(\S+)(?:\s+(.*))?$`)
	amountPattern = regexp.MustCompile(`^-?\d+\.\d{2}$`)
	tokenPattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
)

// ParsedLine is the syntactic form of a journal line:
// <reference> <verb> <amount> <template[-token...]> [free text].
type ParsedLine struct {
	Reference   string
	Date        domain.ValueDate
	Verb        domain.Verb
	Amount      decimal.Decimal
	Instruction string
	Comment     string
	Line        string
}

// Parser turns journal lines and voucher file names into postings,
// resolving instruction tokens against the configuration.
type Parser struct {
	cfg *domain.Config
}

// NewParser creates a parser bound to the resolved configuration.
func NewParser(cfg *domain.Config) *Parser {
	return &Parser{cfg: cfg}
}

// ParseLine splits a journal line into its syntactic parts. Semantic
// resolution happens in BuildPosting so parse failures stay run-level
// while resolution failures attach to the posting.
func (p *Parser) ParseLine(line string) (*ParsedLine, error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: not a journal line", apperrors.ErrValidation)
	}
	ref, verb, amountText, instruction, comment := m[1], m[2], m[3], m[4], m[5]

	rm := refPattern.FindStringSubmatch(ref)
	if rm == nil {
		return nil, fmt.Errorf("%w: bad reference %q", apperrors.ErrValidation, ref)
	}
	date, err := p.cfg.Period.Parse(rm[1])
	if err != nil {
		return nil, err
	}
	if !amountPattern.MatchString(amountText) {
		return nil, fmt.Errorf("%w: bad amount %q, two decimals required", apperrors.ErrValidation, amountText)
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount %q", apperrors.ErrValidation, amountText)
	}

	return &ParsedLine{
		Reference:   ref,
		Date:        date,
		Verb:        domain.Verb(verb),
		Amount:      amount,
		Instruction: instruction,
		Comment:     strings.TrimSpace(comment),
		Line:        line,
	}, nil
}

// BuildPosting resolves the instruction chain of a parsed line into a
// posting. Resolution problems never abort: they attach to the posting
// and resolution continues with the remaining tokens.
func (p *Parser) BuildPosting(pl *ParsedLine) *domain.Posting {
	posting := &domain.Posting{
		ID:        uuid.NewString(),
		Reference: pl.Reference,
		Date:      pl.Date,
		Verb:      pl.Verb,
		Amount:    pl.Amount,
		Comment:   pl.Comment,
		Line:      pl.Line,
	}

	tokens := strings.Split(pl.Instruction, "-")
	template := p.resolveTemplate(posting, tokens[0])
	posting.Template = template
	posting.Debit = template.Debit
	posting.Credit = template.Credit
	posting.VAT = template.VAT

	for _, token := range tokens[1:] {
		p.resolveToken(posting, token)
	}
	return posting
}

func (p *Parser) resolveTemplate(posting *domain.Posting, token string) *domain.PostingTemplate {
	if !tokenPattern.MatchString(token) {
		posting.Errors.Add("bad template token '%s'", token)
		return p.cfg.FallbackTemplate
	}
	template, ok := p.cfg.Template(token)
	if !ok {
		posting.Errors.Add("unknown template '%s'", token)
		return p.cfg.FallbackTemplate
	}
	return template
}

func (p *Parser) resolveToken(posting *domain.Posting, token string) {
	if !tokenPattern.MatchString(token) {
		posting.Errors.Add("bad instruction token '%s'", token)
		return
	}
	if p.cfg.IsTag(token) {
		posting.Tags = append(posting.Tags, token)
		return
	}
	if swap, ok := p.cfg.Swap(token); ok {
		p.applySwap(posting, swap, token)
		return
	}
	if rate, ok := p.cfg.VATRate(token); ok {
		posting.VAT = rate
		return
	}
	posting.Errors.Add("unknown instruction '%s'", token)
}

// applySwap replaces the credit account when the swap covers it, the
// debit account otherwise.
func (p *Parser) applySwap(posting *domain.Posting, swap *domain.AccountSwap, token string) {
	switch {
	case swap.Covers(posting.Credit):
		posting.Credit = swap.Account
	case swap.Covers(posting.Debit):
		posting.Debit = swap.Account
	default:
		posting.Errors.Add("substitution '%s' fits neither %s nor %s", token, posting.Debit, posting.Credit)
	}
}
