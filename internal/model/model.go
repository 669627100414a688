package model

import (
	"slices"

	"plancal/internal/civil"
)

// Holiday is one public holiday as reported by a holiday source, after
// boundary normalization.
type Holiday struct {
	Country string     `json:"country"`
	Date    civil.Date `json:"date"`
	Name    string     `json:"name"`
	// Source identifies where the entry came from (e.g. "api" or an ICS
	// feed ID).
	Source string `json:"source"`
}

// MergeHolidays combines lists from several sources into one list sorted
// by date. When two sources report the same date, the first one wins.
func MergeHolidays(lists ...[]Holiday) []Holiday {
	seen := make(map[civil.Date]bool)
	out := make([]Holiday, 0)
	for _, list := range lists {
		for _, h := range list {
			if seen[h.Date] {
				continue
			}
			seen[h.Date] = true
			out = append(out, h)
		}
	}
	slices.SortStableFunc(out, func(a, b Holiday) int {
		return civil.Compare(a.Date, b.Date)
	})
	return out
}

// DateSet returns the dates of hs as a civil.Set.
func DateSet(hs []Holiday) civil.Set {
	s := make(civil.Set, len(hs))
	for _, h := range hs {
		s.Add(h.Date)
	}
	return s
}
