// Package overlap finds meeting start times that fit every participant's
// local working window on a given UTC day.
package overlap

import (
	"errors"
	"fmt"
	"time"

	"plancal/internal/civil"
	"plancal/internal/tz"
)

// ErrConfiguration is returned for windows that cannot be evaluated.
var ErrConfiguration = errors.New("invalid overlap configuration")

// Fixed window used when BusinessHoursOnly is set.
const (
	BusinessStartMinute = 9 * 60
	BusinessEndMinute   = 17 * 60
)

const minutesPerDay = 24 * 60

// Participant is one zone taking part in the meeting.
type Participant struct {
	Zone string `json:"zone" yaml:"zone"`
	// HolidayCountry is an optional ISO 3166-1 alpha-2 code.
	HolidayCountry string `json:"holiday_country,omitempty" yaml:"holiday_country,omitempty"`
}

// Window configures an evaluation.
type Window struct {
	Participants []Participant
	// Day is scanned from 00:00 UTC to the next 00:00 UTC.
	Day civil.Date

	// StartMinute and EndMinute bound the local window, in minutes after
	// local midnight. Ignored when BusinessHoursOnly is set.
	StartMinute       int
	EndMinute         int
	BusinessHoursOnly bool

	MeetingMinutes int
	StepMinutes    int

	WeekdaysOnly  bool
	AvoidHolidays bool
	Holidays      civil.HolidayFunc
}

// Bounds returns the effective local window.
func (w Window) Bounds() (start, end int) {
	if w.BusinessHoursOnly {
		return BusinessStartMinute, BusinessEndMinute
	}
	return w.StartMinute, w.EndMinute
}

// Validate checks numeric settings and every participant zone.
func (w Window) Validate() error {
	if w.StepMinutes <= 0 {
		return fmt.Errorf("%w: step must be positive, got %d minutes", ErrConfiguration, w.StepMinutes)
	}
	if w.MeetingMinutes <= 0 {
		return fmt.Errorf("%w: meeting length must be positive, got %d minutes", ErrConfiguration, w.MeetingMinutes)
	}
	if !w.BusinessHoursOnly {
		if !validMinute(w.StartMinute) || !validMinute(w.EndMinute) {
			return fmt.Errorf("%w: window %d-%d outside 0-%d", ErrConfiguration, w.StartMinute, w.EndMinute, minutesPerDay-1)
		}
		if w.StartMinute > w.EndMinute {
			return fmt.Errorf("%w: window start %s is after end %s", ErrConfiguration, FormatMinute(w.StartMinute), FormatMinute(w.EndMinute))
		}
	}
	for i, p := range w.Participants {
		if !tz.IsValid(p.Zone) {
			return fmt.Errorf("participant %d: %w: %q", i, tz.ErrInvalidTimeZone, p.Zone)
		}
	}
	return nil
}

func validMinute(m int) bool { return m >= 0 && m < minutesPerDay }

// ZoneSlot is the verdict for one participant at one candidate start.
type ZoneSlot struct {
	Zone        string     `json:"zone"`
	Label       string     `json:"label"`
	Date        civil.Date `json:"date"`
	StartMinute int        `json:"start_minute"`
	EndMinute   int        `json:"end_minute"`
	SameDay     bool       `json:"same_day"`
	Weekend     bool       `json:"weekend"`
	Holiday     bool       `json:"holiday"`
	Fits        bool       `json:"fits"`
}

// Row is one candidate meeting start.
type Row struct {
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	Slots     []ZoneSlot `json:"slots"`
	IsOverlap bool       `json:"is_overlap"`
}

// Evaluate returns one row per candidate start, in chronological order.
// With no participants every row overlaps trivially.
func Evaluate(w Window) ([]Row, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	locs := make([]*time.Location, len(w.Participants))
	for i, p := range w.Participants {
		loc, err := tz.Load(p.Zone)
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", i, err)
		}
		locs[i] = loc
	}

	winStart, winEnd := w.Bounds()
	step := time.Duration(w.StepMinutes) * time.Minute
	length := time.Duration(w.MeetingMinutes) * time.Minute
	dayStart := w.Day.Normalize().Time()
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows := make([]Row, 0, minutesPerDay/w.StepMinutes+1)
	for t := dayStart; t.Before(dayEnd); t = t.Add(step) {
		row := Row{
			Start:     t,
			End:       t.Add(length),
			Slots:     make([]ZoneSlot, 0, len(w.Participants)),
			IsOverlap: true,
		}
		for i, p := range w.Participants {
			slot := w.check(p, locs[i], row.Start, row.End, winStart, winEnd)
			if !slot.Fits {
				row.IsOverlap = false
			}
			row.Slots = append(row.Slots, slot)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (w Window) check(p Participant, loc *time.Location, start, end time.Time, winStart, winEnd int) ZoneSlot {
	ls := start.In(loc)
	le := end.In(loc)

	slot := ZoneSlot{
		Zone:        p.Zone,
		Label:       ls.Format("Mon 15:04 MST"),
		Date:        civil.FromTime(ls),
		StartMinute: ls.Hour()*60 + ls.Minute(),
		EndMinute:   le.Hour()*60 + le.Minute(),
	}
	slot.SameDay = slot.Date == civil.FromTime(le)
	slot.Weekend = slot.Date.IsWeekend()
	if p.HolidayCountry != "" {
		slot.Holiday = w.Holidays.Contains(p.HolidayCountry, slot.Date)
	}

	slot.Fits = slot.SameDay &&
		!(w.WeekdaysOnly && slot.Weekend) &&
		!(w.AvoidHolidays && slot.Holiday) &&
		slot.StartMinute >= winStart &&
		slot.EndMinute <= winEnd
	return slot
}

// FormatMinute renders a minute-of-day as HH:MM.
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseMinute parses HH:MM into a minute-of-day in [0, 1439].
func ParseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: time of day %q (want HH:MM)", ErrConfiguration, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
