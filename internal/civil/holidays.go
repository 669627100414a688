package civil

import "slices"

// Set is a set of canonical YYYY-MM-DD strings. A nil Set is empty.
type Set map[string]struct{}

// NewSet builds a Set from canonical date strings.
func NewSet(dates ...string) Set {
	s := make(Set, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// Add inserts d.
func (s Set) Add(d Date) {
	s[d.String()] = struct{}{}
}

// Has reports whether d is in the set.
func (s Set) Has(d Date) bool {
	_, ok := s[d.String()]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// HolidayFunc looks up the public holidays of a country for one year.
//
// A nil func, or a nil/empty Set for a key, means no holidays are known.
// That is never an error.
type HolidayFunc func(country string, year int) Set

// Contains reports whether d is a holiday in country. Safe on a nil func.
func (f HolidayFunc) Contains(country string, d Date) bool {
	if f == nil {
		return false
	}
	d = d.Normalize()
	return f(country, d.Year).Has(d)
}

// StaticHolidays returns a HolidayFunc backed by a fixed table keyed by
// country, with dates in canonical form. Years are derived from the dates.
func StaticHolidays(table map[string][]string) HolidayFunc {
	type key struct {
		country string
		year    int
	}
	sets := make(map[key]Set)
	for country, dates := range table {
		for _, s := range dates {
			d, err := Parse(s)
			if err != nil {
				continue
			}
			d = d.Normalize()
			k := key{country, d.Year}
			if sets[k] == nil {
				sets[k] = make(Set)
			}
			sets[k].Add(d)
		}
	}
	return func(country string, year int) Set {
		return sets[key{country, year}]
	}
}
