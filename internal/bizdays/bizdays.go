// Package bizdays counts and adds business days over civil dates.
//
// A day is excluded for at most one reason, checked in a fixed order:
// weekend first, then holiday. A Saturday that is also a public holiday is
// reported as a weekend.
package bizdays

import (
	"errors"
	"fmt"

	"plancal/internal/civil"
)

var (
	// ErrInvalidRange is returned when a range ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidCount is returned for a negative business-day count.
	ErrInvalidCount = errors.New("invalid business day count")
	// ErrScanLimit is returned when Add walks too far without finding
	// enough business days, which only happens with a degenerate
	// holiday table.
	ErrScanLimit = errors.New("business day scan limit reached")
)

// Options controls which days are excluded.
type Options struct {
	ExcludeWeekends bool
	// Holidays may be nil, meaning no holidays.
	Holidays civil.HolidayFunc
}

// Kind classifies a single day.
type Kind int

const (
	Business Kind = iota
	Weekend
	Holiday
)

func (k Kind) String() string {
	switch k {
	case Weekend:
		return "weekend"
	case Holiday:
		return "holiday"
	default:
		return "business"
	}
}

// Classify returns how d is treated under opts for country.
func Classify(d civil.Date, country string, opts Options) Kind {
	if opts.ExcludeWeekends && d.IsWeekend() {
		return Weekend
	}
	if opts.Holidays.Contains(country, d) {
		return Holiday
	}
	return Business
}

// RangeResult summarizes an inclusive range scan.
type RangeResult struct {
	Start               civil.Date   `json:"start"`
	End                 civil.Date   `json:"end"`
	CalendarDays        int          `json:"calendar_days"`
	BusinessDays        int          `json:"business_days"`
	WeekendDaysExcluded int          `json:"weekend_days_excluded"`
	HolidayDaysExcluded int          `json:"holiday_days_excluded"`
	HolidaysHit         []civil.Date `json:"holidays_hit"`
}

// BetweenInclusive scans every day from start to end inclusive.
func BetweenInclusive(start, end civil.Date, country string, opts Options) (RangeResult, error) {
	if civil.Compare(start, end) > 0 {
		return RangeResult{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}

	res := RangeResult{
		Start:       start,
		End:         end,
		HolidaysHit: []civil.Date{},
	}

	last := end.Normalize()
	for d := start.Normalize(); civil.Compare(d, last) <= 0; d = d.AddDays(1) {
		res.CalendarDays++
		switch Classify(d, country, opts) {
		case Weekend:
			res.WeekendDaysExcluded++
		case Holiday:
			res.HolidayDaysExcluded++
			res.HolidaysHit = append(res.HolidaysHit, d)
		default:
			res.BusinessDays++
		}
	}
	return res, nil
}

// AddResult is the outcome of walking forward N business days.
type AddResult struct {
	Start        civil.Date   `json:"start"`
	Days         int          `json:"days"`
	Result       civil.Date   `json:"result"`
	DaysSkipped  int          `json:"days_skipped"`
	SkippedDates []civil.Date `json:"skipped_dates"`
}

// Add returns the date reached after n business days, starting the walk on
// the day after start. n == 0 returns start untouched; start itself is never
// classified.
func Add(start civil.Date, n int, country string, opts Options) (AddResult, error) {
	if n < 0 {
		return AddResult{}, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}

	res := AddResult{
		Start:        start,
		Days:         n,
		Result:       start,
		SkippedDates: []civil.Date{},
	}
	if n == 0 {
		return res, nil
	}

	limit := scanLimit(n)
	d := start.Normalize()
	for counted, walked := 0, 0; counted < n; walked++ {
		if walked >= limit {
			return AddResult{}, fmt.Errorf("%w: %d days walked from %s", ErrScanLimit, walked, start)
		}
		d = d.AddDays(1)
		if Classify(d, country, opts) != Business {
			res.SkippedDates = append(res.SkippedDates, d)
			continue
		}
		counted++
	}

	res.Result = d
	res.DaysSkipped = len(res.SkippedDates)
	return res, nil
}

// scanLimit bounds the forward walk: weekends alone cost 2 of every 7 days;
// the extra ten years leave room for any real holiday calendar.
func scanLimit(n int) int {
	return n*7/5 + 7 + 3660
}
