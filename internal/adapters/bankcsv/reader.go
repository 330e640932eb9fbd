// Package bankcsv implements ports.BankSource for a simple CSV
// statement export:
//
//	date,amount,direction,description[,code]
//	2024-01-05,100.00,debit,rent transfer,STO
//
// A header row is skipped when its first field is "date". A row whose
// date field is "opening" carries the authoritative opening balance in
// the amount field.
package bankcsv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cashbooklabs/cashbook/internal/core/domain"
	"github.com/cashbooklabs/cashbook/internal/core/ports"
)

// Reader parses one CSV statement file lazily and caches the result.
type Reader struct {
	path   string
	period *domain.Period

	once       sync.Once
	loadErr    error
	txns       []*domain.BankTransaction
	opening    decimal.Decimal
	hasOpening bool
}

var _ ports.BankSource = (*Reader)(nil)

// NewReader creates a source for the statement file at path. Dates are
// resolved against the given period.
func NewReader(path string, period *domain.Period) *Reader {
	return &Reader{path: path, period: period}
}

// Name returns the statement file name, used in posting comments.
func (r *Reader) Name() string { return filepath.Base(r.path) }

// Transactions returns all records of the export.
func (r *Reader) Transactions() ([]*domain.BankTransaction, error) {
	r.once.Do(r.load)
	return r.txns, r.loadErr
}

// OpeningBalance returns the opening balance row, if the export has
// one.
func (r *Reader) OpeningBalance() (decimal.Decimal, bool) {
	r.once.Do(r.load)
	if r.loadErr != nil {
		return decimal.Zero, false
	}
	return r.opening, r.hasOpening
}

func (r *Reader) load() {
	f, err := os.Open(r.path)
	if err != nil {
		r.loadErr = fmt.Errorf("open statement %s: %w", r.path, err)
		return
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		r.loadErr = fmt.Errorf("parse statement %s: %w", r.path, err)
		return
	}

	for i, row := range rows {
		lineNr := i + 1
		if len(row) == 0 || (lineNr == 1 && strings.EqualFold(row[0], "date")) {
			continue
		}
		if strings.EqualFold(row[0], "opening") {
			if err := r.readOpening(row, lineNr); err != nil {
				r.loadErr = err
				return
			}
			continue
		}
		txn, err := r.readRecord(row, lineNr)
		if err != nil {
			r.loadErr = err
			return
		}
		r.txns = append(r.txns, txn)
	}
}

func (r *Reader) readOpening(row []string, lineNr int) error {
	if len(row) < 2 {
		return fmt.Errorf("statement %s line %d: opening row needs an amount", r.path, lineNr)
	}
	opening, err := decimal.NewFromString(row[1])
	if err != nil {
		return fmt.Errorf("statement %s line %d: bad opening balance %q", r.path, lineNr, row[1])
	}
	r.opening = opening
	r.hasOpening = true
	return nil
}

func (r *Reader) readRecord(row []string, lineNr int) (*domain.BankTransaction, error) {
	if len(row) < 4 {
		return nil, fmt.Errorf("statement %s line %d: need date,amount,direction,description", r.path, lineNr)
	}
	date, err := r.period.Parse(row[0])
	if err != nil {
		return nil, fmt.Errorf("statement %s line %d: bad date %q", r.path, lineNr, row[0])
	}
	amount, err := decimal.NewFromString(row[1])
	if err != nil || amount.IsNegative() {
		return nil, fmt.Errorf("statement %s line %d: bad amount %q, positive amount with a direction required", r.path, lineNr, row[1])
	}
	var direction domain.Direction
	switch strings.ToLower(row[2]) {
	case "debit", "d":
		direction = domain.DirectionDebit
	case "credit", "c":
		direction = domain.DirectionCredit
	default:
		return nil, fmt.Errorf("statement %s line %d: bad direction %q", r.path, lineNr, row[2])
	}
	description := row[3]
	code := ""
	if len(row) > 4 {
		code = row[4]
	}

	return &domain.BankTransaction{
		Date:           date,
		Amount:         amount,
		Direction:      direction,
		Description:    description,
		SettlementCode: code,
		LineNr:         lineNr,
		Comment:        fmt.Sprintf("%s: %s", r.Name(), description),
	}, nil
}
