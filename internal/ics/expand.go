package ics

import (
	"errors"
	"slices"

	"github.com/teambition/rrule-go"

	"plancal/internal/civil"
	appLog "plancal/internal/log"
)

// maxOccurrencesPerEntry caps one entry's instances within a single year.
const maxOccurrencesPerEntry = 400

// Occurrence is one holiday day produced by expanding an Entry.
type Occurrence struct {
	UID     string
	Summary string
	Date    civil.Date
}

// ExpandYear expands entries into the days of year they cover. It applies
// RRULE, EXDATE, RECURRENCE-ID overrides and STATUS:CANCELLED. Multi-day
// entries yield one occurrence per day. The result is sorted by date.
func ExpandYear(entries []Entry, year int) []Occurrence {
	from := civil.Date{Year: year, Month: 1, Day: 1}
	to := civil.Date{Year: year, Month: 12, Day: 31}

	bases := make([]Entry, 0, len(entries))
	overridesByUID := make(map[string][]Entry)
	for _, e := range entries {
		if e.IsOverride() {
			overridesByUID[e.UID] = append(overridesByUID[e.UID], e)
		} else {
			bases = append(bases, e)
		}
	}

	out := make([]Occurrence, 0)
	for _, base := range bases {
		if base.Cancelled {
			continue
		}
		for _, start := range instanceStarts(base, from, to) {
			inst := base
			inst.Start = start
			if o, ok := findOverride(overridesByUID[base.UID], start); ok {
				if o.Cancelled {
					continue
				}
				inst = o
			}
			for k := 0; k < max(inst.Days, 1); k++ {
				d := inst.Start.AddDays(k)
				if d.Year != year {
					continue
				}
				out = append(out, Occurrence{UID: base.UID, Summary: inst.Summary, Date: d})
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Occurrence) int {
		return civil.Compare(a.Date, b.Date)
	})
	return out
}

// instanceStarts returns the start days of e's instances that can touch
// [from, to].
func instanceStarts(e Entry, from, to civil.Date) []civil.Date {
	// A multi-day instance starting before from can still reach into it.
	lower := from.AddDays(-(max(e.Days, 1) - 1))

	if e.RawRRule == "" {
		if e.Start.Before(lower) || e.Start.After(to) {
			return nil
		}
		return []civil.Date{e.Start}
	}

	r, err := rrule.StrToRRule(e.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", e.UID, "rrule", e.RawRRule)
		return nil
	}
	r.DTStart(e.Start.Time())

	var set rrule.Set
	set.RRule(r)
	for _, ex := range e.ExDates {
		set.ExDate(ex.Time())
	}

	times := set.Between(lower.Time(), to.Time(), true)
	if len(times) > maxOccurrencesPerEntry {
		appLog.Error("ics: truncated occurrences for UID due to cap",
			errors.New("max occurrences reached"),
			"uid", e.UID,
			"cap", maxOccurrencesPerEntry,
		)
		times = times[:maxOccurrencesPerEntry]
	}

	out := make([]civil.Date, 0, len(times))
	for _, t := range times {
		out = append(out, civil.FromTime(t))
	}
	return out
}

func findOverride(overrides []Entry, start civil.Date) (Entry, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && *o.Recurrence == start {
			return o, true
		}
	}
	return Entry{}, false
}
