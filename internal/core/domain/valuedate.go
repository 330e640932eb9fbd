package domain

import (
	"fmt"
	"time"

	"github.com/cashbooklabs/cashbook/internal/apperrors"
)

// DateFormat is the ISO date layout used throughout the journal format.
const DateFormat = "2006-01-02"

// Period is the accounting period all value dates are scoped to.
// Day containers over the period are fixed-size arrays of Days() entries.
type Period struct {
	start time.Time
	end   time.Time
	days  int
}

// NewPeriod builds a period from two ISO dates (inclusive).
func NewPeriod(start, end string) (*Period, error) {
	startTime, err := time.Parse(DateFormat, start)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid period start %q", apperrors.ErrValidation, start)
	}
	endTime, err := time.Parse(DateFormat, end)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid period end %q", apperrors.ErrValidation, end)
	}
	days := int(endTime.Sub(startTime).Hours()/24) + 1
	if days < 1 {
		return nil, fmt.Errorf("%w: period end %s is before start %s", apperrors.ErrValidation, end, start)
	}
	return &Period{start: startTime, end: endTime, days: days}, nil
}

// Days is the number of calendar days in the period, inclusive.
func (p *Period) Days() int { return p.days }

// Start is the first value date of the period (offset 0).
func (p *Period) Start() ValueDate { return ValueDate{period: p, offset: 0} }

// End is the last value date of the period.
func (p *Period) End() ValueDate { return ValueDate{period: p, offset: p.days - 1} }

// Date converts a calendar time into a value date of this period.
// The result may lie outside the period; containers reject it on access.
func (p *Period) Date(t time.Time) ValueDate {
	offset := int(t.Truncate(24*time.Hour).Sub(p.start).Hours() / 24)
	return ValueDate{period: p, offset: offset}
}

// Parse converts an ISO date string into a value date of this period.
func (p *Period) Parse(s string) (ValueDate, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return ValueDate{}, fmt.Errorf("%w: invalid date %q", apperrors.ErrValidation, s)
	}
	return p.Date(t), nil
}

// Contains reports whether the value date lies inside the period.
func (p *Period) Contains(d ValueDate) bool {
	return d.period == p && d.offset >= 0 && d.offset < p.days
}

// String renders the period as "start..end".
func (p *Period) String() string {
	return fmt.Sprintf("%s..%s", p.start.Format(DateFormat), p.end.Format(DateFormat))
}

// ValueDate is the economic date of a transaction, stored as an integer
// day offset from the period start. The zero value is "undefined".
type ValueDate struct {
	period *Period
	offset int
}

// Defined reports whether the value date belongs to a period.
func (d ValueDate) Defined() bool { return d.period != nil }

// Offset is the number of days since the period start (may be negative).
func (d ValueDate) Offset() int { return d.offset }

// Time converts the value date back into a calendar time.
func (d ValueDate) Time() time.Time { return d.period.start.AddDate(0, 0, d.offset) }

// String renders the value date as an ISO date.
func (d ValueDate) String() string { return d.Time().Format(DateFormat) }

// AddDays returns the value date shifted by n days.
func (d ValueDate) AddDays(n int) ValueDate {
	return ValueDate{period: d.period, offset: d.offset + n}
}

// DaysSince returns the difference d - other in days.
func (d ValueDate) DaysSince(other ValueDate) int {
	d.assertSamePeriod(other)
	return d.offset - other.offset
}

// Compare orders two value dates of the same period.
func (d ValueDate) Compare(other ValueDate) int {
	d.assertSamePeriod(other)
	switch {
	case d.offset < other.offset:
		return -1
	case d.offset > other.offset:
		return 1
	default:
		return 0
	}
}

func (d ValueDate) Equal(other ValueDate) bool  { return d.Compare(other) == 0 }
func (d ValueDate) Before(other ValueDate) bool { return d.Compare(other) < 0 }
func (d ValueDate) After(other ValueDate) bool  { return d.Compare(other) > 0 }

// Comparing dates built from different period origins is a programming
// error, not a data error.
func (d ValueDate) assertSamePeriod(other ValueDate) {
	if d.period == nil || other.period == nil {
		panic("domain: comparison with undefined value date")
	}
	if d.period != other.period {
		panic("domain: value dates from different periods compared")
	}
}
