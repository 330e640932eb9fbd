// Package config loads the run configuration from a YAML file plus
// environment overrides and resolves every name in it. Anything that
// does not resolve is fatal: the engine never starts on a chart of
// accounts it cannot fully wire.
package config

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/cashbooklabs/cashbook/internal/apperrors"
	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/services"
)

type rawPeriod struct {
	Start string `mapstructure:"start" validate:"required"`
	End   string `mapstructure:"end" validate:"required"`
}

type rawAccount struct {
	Number         int     `mapstructure:"number" validate:"required,gt=0"`
	Category       string  `mapstructure:"category" validate:"required,oneof=ASSET LIABILITY INCOME EXPENSE"`
	Text           string  `mapstructure:"text"`
	OpeningBalance float64 `mapstructure:"opening_balance"`
	FallbackDebit  string  `mapstructure:"fallback_debit"`
	FallbackCredit string  `mapstructure:"fallback_credit"`
}

type rawTemplate struct {
	Name   string `mapstructure:"name" validate:"required"`
	Debit  int    `mapstructure:"debit" validate:"required"`
	Credit int    `mapstructure:"credit" validate:"required"`
	VAT    string `mapstructure:"vat"`
	Text   string `mapstructure:"text"`
}

type rawSwap struct {
	Tag      string `mapstructure:"tag" validate:"required"`
	Account  int    `mapstructure:"account" validate:"required"`
	Replaces []int  `mapstructure:"replaces" validate:"required,min=1"`
}

type rawVATRate struct {
	Code    string  `mapstructure:"code" validate:"required"`
	Rate    float64 `mapstructure:"rate" validate:"required,gt=0"`
	Account int     `mapstructure:"account" validate:"required"`
	Text    string  `mapstructure:"text"`
}

type rawRule struct {
	Search      string `mapstructure:"search" validate:"required"`
	Instruction string `mapstructure:"instruction" validate:"required"`
	Text        string `mapstructure:"text"`
	DirectBook  bool   `mapstructure:"direct_book"`
}

type rawBank struct {
	Name         string `mapstructure:"name" validate:"required"`
	Account      int    `mapstructure:"account" validate:"required"`
	SourceFile   string `mapstructure:"source_file" validate:"required"`
	CheckBalance bool   `mapstructure:"check_balance"`
	AddProposals bool   `mapstructure:"add_proposals"`
}

type rawClosing struct {
	Title string   `mapstructure:"title"`
	Left  []string `mapstructure:"left"`
	Right []string `mapstructure:"right"`
}

type rawConfig struct {
	Period           rawPeriod     `mapstructure:"period"`
	JournalFile      string        `mapstructure:"journal_file"`
	VoucherDir       string        `mapstructure:"voucher_dir"`
	TraceDir         string        `mapstructure:"trace_dir"`
	BackupDir        string        `mapstructure:"backup_dir"`
	ReportFile       string        `mapstructure:"report_file"`
	SkipMarker       string        `mapstructure:"skip_marker"`
	VATScheme        string        `mapstructure:"vat_scheme" validate:"oneof=effective flat-rate"`
	Accounts         []rawAccount  `mapstructure:"accounts" validate:"required,min=1,dive"`
	Templates        []rawTemplate `mapstructure:"templates" validate:"required,min=1,dive"`
	Tags             []string      `mapstructure:"tags"`
	Swaps            []rawSwap     `mapstructure:"swaps" validate:"dive"`
	VATRates         []rawVATRate  `mapstructure:"vat_rates" validate:"dive"`
	ProposalRules    []rawRule     `mapstructure:"proposal_rules" validate:"dive"`
	Banks            []rawBank     `mapstructure:"banks" validate:"dive"`
	FallbackTemplate string        `mapstructure:"fallback_template" validate:"required"`
	ProfitTemplate   string        `mapstructure:"profit_template" validate:"required"`
	ClosingTemplates []string      `mapstructure:"closing_templates"`
	BalanceSheet     rawClosing    `mapstructure:"balance_sheet"`
	IncomeStatement  rawClosing    `mapstructure:"income_statement"`
}

// Load reads, validates and resolves the configuration file.
func Load(path string) (*domain.Config, error) {
	// Optional .env next to the working directory, same as the rest
	// of the tooling.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("journal_file", "cashbook_journal.txt")
	v.SetDefault("trace_dir", "out_trace")
	v.SetDefault("backup_dir", "out_backup")
	v.SetDefault("report_file", "out_report.txt")
	v.SetDefault("skip_marker", "SKIP")
	v.SetDefault("vat_scheme", "effective")
	v.SetEnvPrefix("CASHBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.NewConfigError("read %s: %v", path, err)
	}
	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, apperrors.NewConfigError("parse %s: %v", path, err)
	}
	if err := validator.New().Struct(&raw); err != nil {
		return nil, apperrors.NewConfigError("%s: %v", path, err)
	}
	return resolve(path, &raw)
}

// resolve turns the raw file content into the immutable domain config.
func resolve(path string, raw *rawConfig) (*domain.Config, error) {
	period, err := domain.NewPeriod(raw.Period.Start, raw.Period.End)
	if err != nil {
		return nil, apperrors.NewConfigError("%s: %v", path, err)
	}

	cfg := &domain.Config{
		Period:      period,
		Accounts:    make(map[int]*domain.Account),
		Templates:   make(map[string]*domain.PostingTemplate),
		Tags:        make(map[string]struct{}),
		Swaps:       make(map[string]*domain.AccountSwap),
		VATRates:    make(map[string]*domain.VATRate),
		JournalFile: raw.JournalFile,
		VoucherDir:  raw.VoucherDir,
		TraceDir:    raw.TraceDir,
		BackupDir:   raw.BackupDir,
		ReportFile:  raw.ReportFile,
		SkipMarker:  raw.SkipMarker,
	}
	switch raw.VATScheme {
	case "flat-rate":
		cfg.VATScheme = services.NewFlatRateVATScheme()
	default:
		cfg.VATScheme = services.NewEffectiveVATScheme()
	}

	r := resolver{path: path, cfg: cfg}
	if err := r.accounts(raw.Accounts); err != nil {
		return nil, err
	}
	if err := r.vatRates(raw.VATRates); err != nil {
		return nil, err
	}
	if err := r.templates(raw.Templates); err != nil {
		return nil, err
	}
	if err := r.accountFallbacks(raw.Accounts); err != nil {
		return nil, err
	}
	if err := r.tagsAndSwaps(raw.Tags, raw.Swaps); err != nil {
		return nil, err
	}
	if err := r.proposalRules(raw.ProposalRules); err != nil {
		return nil, err
	}
	if err := r.banks(raw.Banks); err != nil {
		return nil, err
	}
	if err := r.specialTemplates(raw); err != nil {
		return nil, err
	}
	if err := r.closingStructures(raw); err != nil {
		return nil, err
	}
	return cfg, nil
}

type resolver struct {
	path string
	cfg  *domain.Config
}

func (r *resolver) fail(format string, args ...any) error {
	return apperrors.NewConfigErrorAt(r.path, 0, format, args...)
}

func (r *resolver) account(nr int, where string) (*domain.Account, error) {
	a, ok := r.cfg.Account(nr)
	if !ok {
		return nil, r.fail("%s references unknown account %d", where, nr)
	}
	return a, nil
}

func (r *resolver) template(name, where string) (*domain.PostingTemplate, error) {
	t, ok := r.cfg.Template(name)
	if !ok {
		return nil, r.fail("%s references unknown template '%s'", where, name)
	}
	return t, nil
}

func (r *resolver) accounts(raws []rawAccount) error {
	for _, ra := range raws {
		if _, dup := r.cfg.Accounts[ra.Number]; dup {
			return r.fail("duplicate account %d", ra.Number)
		}
		a := &domain.Account{
			Number:         ra.Number,
			Category:       domain.Category(ra.Category),
			Text:           ra.Text,
			OpeningBalance: decimal.NewFromFloat(ra.OpeningBalance),
		}
		if !domain.IsMinorUnit(a.OpeningBalance) {
			return r.fail("account %d: opening balance %s is not a cent amount", ra.Number, a.OpeningBalance)
		}
		r.cfg.Accounts[ra.Number] = a
		r.cfg.AccountsOrdered = append(r.cfg.AccountsOrdered, a)
	}
	return nil
}

func (r *resolver) vatRates(raws []rawVATRate) error {
	for _, rr := range raws {
		if _, dup := r.cfg.VATRates[rr.Code]; dup {
			return r.fail("duplicate VAT code '%s'", rr.Code)
		}
		account, err := r.account(rr.Account, "VAT code '"+rr.Code+"'")
		if err != nil {
			return err
		}
		r.cfg.VATRates[rr.Code] = &domain.VATRate{
			Code:    rr.Code,
			Rate:    decimal.NewFromFloat(rr.Rate),
			Account: account,
			Text:    rr.Text,
		}
	}
	return nil
}

func (r *resolver) templates(raws []rawTemplate) error {
	for _, rt := range raws {
		if _, dup := r.cfg.Templates[rt.Name]; dup {
			return r.fail("duplicate template '%s'", rt.Name)
		}
		debit, err := r.account(rt.Debit, "template '"+rt.Name+"'")
		if err != nil {
			return err
		}
		credit, err := r.account(rt.Credit, "template '"+rt.Name+"'")
		if err != nil {
			return err
		}
		t := &domain.PostingTemplate{Name: rt.Name, Debit: debit, Credit: credit, Text: rt.Text}
		if rt.VAT != "" {
			rate, ok := r.cfg.VATRate(rt.VAT)
			if !ok {
				return r.fail("template '%s' references unknown VAT code '%s'", rt.Name, rt.VAT)
			}
			t.VAT = rate
		}
		if err := t.ValidatePairing(); err != nil {
			return r.fail("%v", err)
		}
		r.cfg.Templates[rt.Name] = t
	}
	return nil
}

func (r *resolver) accountFallbacks(raws []rawAccount) error {
	for _, ra := range raws {
		account := r.cfg.Accounts[ra.Number]
		if ra.FallbackDebit != "" {
			t, err := r.template(ra.FallbackDebit, "account "+strconv.Itoa(ra.Number))
			if err != nil {
				return err
			}
			account.FallbackDebit = t
		}
		if ra.FallbackCredit != "" {
			t, err := r.template(ra.FallbackCredit, "account "+strconv.Itoa(ra.Number))
			if err != nil {
				return err
			}
			account.FallbackCredit = t
		}
	}
	return nil
}

func (r *resolver) tagsAndSwaps(tags []string, swaps []rawSwap) error {
	for _, tag := range tags {
		r.cfg.Tags[tag] = struct{}{}
	}
	for _, rs := range swaps {
		if _, isTag := r.cfg.Tags[rs.Tag]; isTag {
			return r.fail("swap tag '%s' collides with a plain tag", rs.Tag)
		}
		if _, dup := r.cfg.Swaps[rs.Tag]; dup {
			return r.fail("duplicate swap tag '%s'", rs.Tag)
		}
		account, err := r.account(rs.Account, "swap '"+rs.Tag+"'")
		if err != nil {
			return err
		}
		swap := &domain.AccountSwap{Tag: rs.Tag, Account: account}
		for _, nr := range rs.Replaces {
			replaced, err := r.account(nr, "swap '"+rs.Tag+"'")
			if err != nil {
				return err
			}
			swap.Replaces = append(swap.Replaces, replaced)
		}
		r.cfg.Swaps[rs.Tag] = swap
	}
	return nil
}

func (r *resolver) proposalRules(raws []rawRule) error {
	for _, rr := range raws {
		name := strings.SplitN(rr.Instruction, "-", 2)[0]
		template, err := r.template(name, "proposal rule '"+rr.Search+"'")
		if err != nil {
			return err
		}
		r.cfg.ProposalRules = append(r.cfg.ProposalRules, &domain.ProposalRule{
			SearchText:  rr.Search,
			Instruction: rr.Instruction,
			Template:    template,
			Text:        rr.Text,
			DirectBook:  rr.DirectBook,
		})
	}
	return nil
}

func (r *resolver) banks(raws []rawBank) error {
	seen := make(map[string]struct{})
	for _, rb := range raws {
		if _, dup := seen[rb.Name]; dup {
			return r.fail("duplicate bank account '%s'", rb.Name)
		}
		seen[rb.Name] = struct{}{}
		account, err := r.account(rb.Account, "bank account '"+rb.Name+"'")
		if err != nil {
			return err
		}
		if rb.AddProposals && (account.FallbackDebit == nil || account.FallbackCredit == nil) {
			return r.fail("bank account '%s' adds proposals but account %d has no fallback templates", rb.Name, rb.Account)
		}
		r.cfg.Banks = append(r.cfg.Banks, &domain.BankAccount{
			Name:         rb.Name,
			Account:      account,
			SourceFile:   rb.SourceFile,
			CheckBalance: rb.CheckBalance,
			AddProposals: rb.AddProposals,
		})
	}
	return nil
}

func (r *resolver) specialTemplates(raw *rawConfig) error {
	fallback, err := r.template(raw.FallbackTemplate, "fallback_template")
	if err != nil {
		return err
	}
	r.cfg.FallbackTemplate = fallback

	profit, err := r.template(raw.ProfitTemplate, "profit_template")
	if err != nil {
		return err
	}
	r.cfg.ProfitTemplate = profit

	for _, name := range raw.ClosingTemplates {
		t, err := r.template(name, "closing_templates")
		if err != nil {
			return err
		}
		r.cfg.ClosingTemplates = append(r.cfg.ClosingTemplates, t)
	}
	return nil
}

func (r *resolver) closingStructures(raw *rawConfig) error {
	var err error
	r.cfg.BalanceSheet, err = r.closingStructure(raw.BalanceSheet, "balance_sheet")
	if err != nil {
		return err
	}
	r.cfg.IncomeStatement, err = r.closingStructure(raw.IncomeStatement, "income_statement")
	return err
}

// closingStructure parses the section lines: a number is an account
// reference, anything else a subtitle.
func (r *resolver) closingStructure(raw rawClosing, where string) (domain.ClosingStructure, error) {
	structure := domain.ClosingStructure{Title: raw.Title}
	var err error
	if structure.Left, err = r.closingSection(raw.Left, where); err != nil {
		return structure, err
	}
	structure.Right, err = r.closingSection(raw.Right, where)
	return structure, err
}

func (r *resolver) closingSection(lines []string, where string) (domain.ClosingSection, error) {
	var section domain.ClosingSection
	for _, line := range lines {
		if nr, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			account, err := r.account(nr, where)
			if err != nil {
				return nil, err
			}
			section = append(section, domain.ClosingLine{Account: account})
			continue
		}
		section = append(section, domain.ClosingLine{Title: line})
	}
	return section, nil
}
