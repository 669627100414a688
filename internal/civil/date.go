package civil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFormat is returned when a string is not a YYYY-MM-DD date.
var ErrInvalidFormat = errors.New("invalid date format")

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date is a calendar date with no time-of-day and no zone.
//
// All arithmetic is pinned to the UTC calendar: a Date is treated as
// midnight UTC internally so day stepping never crosses a DST transition.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Parse parses a canonical YYYY-MM-DD string.
//
// Month must be 1-12 and day 1-31. Days past the end of a shorter month
// (e.g. "2025-02-30") are accepted and roll over in arithmetic.
func Parse(s string) (Date, error) {
	if !datePattern.MatchString(s) {
		return Date{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidFormat, s)
	}
	y, _ := strconv.Atoi(s[0:4])
	m, _ := strconv.Atoi(s[5:7])
	d, _ := strconv.Atoi(s[8:10])
	if m < 1 || m > 12 {
		return Date{}, fmt.Errorf("%w: %q has month %d", ErrInvalidFormat, s, m)
	}
	if d < 1 || d > 31 {
		return Date{}, fmt.Errorf("%w: %q has day %d", ErrInvalidFormat, s, d)
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, nil
}

// MustParse is like Parse but panics on error. Intended for fixtures.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String returns the zero-padded YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays shifts d by n days (n may be zero or negative). The result is
// always a real calendar date.
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Normalize rolls an out-of-range day into the following month.
func (d Date) Normalize() Date {
	return d.AddDays(0)
}

// Weekday returns the UTC-pinned weekday of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Compare orders a and b by their canonical string form and returns -1, 0
// or 1.
func Compare(a, b Date) int {
	return strings.Compare(a.String(), b.String())
}

// Before reports whether d sorts before other.
func (d Date) Before(other Date) bool { return Compare(d, other) < 0 }

// After reports whether d sorts after other.
func (d Date) After(other Date) bool { return Compare(d, other) > 0 }

// DaysUntil returns the number of days from d to other (negative when
// other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()) / (24 * time.Hour))
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
