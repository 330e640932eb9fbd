package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

// JournalService reads the journal text into the aggregate and renders
// it back out. Diagnostics and proposals are dropped on read; the
// engine regenerates them from current state on every run.
type JournalService struct {
	cfg    *domain.Config
	parser *Parser
}

// NewJournalService creates the journal round-trip service.
func NewJournalService(cfg *domain.Config, parser *Parser) *JournalService {
	return &JournalService{cfg: cfg, parser: parser}
}

// Read parses the journal content line by line. Only `b` lines carry
// state between runs; everything else is either regenerated or a
// run-level error echoed back commented out.
func (s *JournalService) Read(ctx context.Context, j *domain.Journal, content string) {
	logger := logging.FromCtx(ctx)

	read := 0
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if s.isDiagnostic(line) {
			continue
		}

		parsed, err := s.parser.ParseLine(line)
		if err != nil {
			j.AddRunErrorLine(line, err, true)
			continue
		}
		switch parsed.Verb {
		case domain.VerbBook:
			posting := s.parser.BuildPosting(parsed)
			if err := j.AddPosting(posting); err != nil {
				j.AddRunErrorLine(line, err, true)
				continue
			}
			read++
		case domain.VerbProposal, domain.VerbVoucher:
			// Regenerated from the bank feeds and the voucher
			// directory.
		default:
			j.AddRunErrorLine(line, fmt.Errorf("unknown verb '%s'", parsed.Verb), true)
		}
	}
	logger.Info("journal read", "postings", read)
}

// isDiagnostic reports whether the line is engine output from a
// previous run: a comment, todo or error line.
func (s *JournalService) isDiagnostic(line string) bool {
	if strings.HasPrefix(line, domain.PrefixComment) {
		return true
	}
	fields := strings.Fields(line)
	return len(fields) > 0 && (fields[0] == domain.PrefixTodo || fields[0] == domain.PrefixError)
}
