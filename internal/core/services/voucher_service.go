package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cashbooklabs/cashbook/internal/apperrors"
	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

var extensionPattern = regexp.MustCompile(`\.[a-zA-Z0-9]+$`)

// VoucherService materializes postings from the names of scanned
// voucher files. The file name is a journal line with verb `f`; the
// directory, not the journal, is the source of truth for these
// postings.
type VoucherService struct {
	cfg    *domain.Config
	parser *Parser
}

// NewVoucherService creates the voucher directory scanner.
func NewVoucherService(cfg *domain.Config, parser *Parser) *VoucherService {
	return &VoucherService{cfg: cfg, parser: parser}
}

// Scan walks the configured voucher directory and books one posting
// per bookable file name.
func (s *VoucherService) Scan(ctx context.Context, j *domain.Journal) error {
	if s.cfg.VoucherDir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.cfg.VoucherDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperrors.NewConfigError("voucher directory %s: %v", s.cfg.VoucherDir, err)
	}

	logger := logging.FromCtx(ctx)
	booked := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.EqualFold(name, "thumbs.db") || strings.Contains(name, s.cfg.SkipMarker) {
			continue
		}
		if s.book(j, name) {
			booked++
		}
	}
	logger.Info("voucher directory scanned", "dir", s.cfg.VoucherDir, "booked", booked)
	return nil
}

func (s *VoucherService) book(j *domain.Journal, name string) bool {
	base := extensionPattern.ReplaceAllString(name, "")
	parsed, err := s.parser.ParseLine(base)
	if err != nil {
		j.AddRunErrorLine(filepath.Join(s.cfg.VoucherDir, name),
			fmt.Errorf("voucher name not bookable (rename with '%s' to skip): %w", s.cfg.SkipMarker, err), true)
		return false
	}
	if parsed.Verb != domain.VerbVoucher {
		day, err := j.Days.Get(parsed.Date)
		if err != nil {
			j.AddRunErrorLine(name, err, true)
			return false
		}
		day.Errors.Add("voucher '%s': only verb '%s' allowed", name, domain.VerbVoucher)
		return false
	}

	posting := s.parser.BuildPosting(parsed)
	posting.Line = name
	if err := j.AddPosting(posting); err != nil {
		j.AddRunErrorLine(name, err, true)
		return false
	}
	return true
}
