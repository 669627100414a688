// Package holiday supplies public-holiday data to the calculators. It owns
// all I/O and caching; the calculators only ever see a Table turned into a
// civil.HolidayFunc.
package holiday

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"plancal/internal/civil"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// Source yields the holidays of one country and year.
type Source interface {
	Name() string
	Holidays(ctx context.Context, country string, year int) ([]model.Holiday, error)
}

// Key identifies one holiday list.
type Key struct {
	Country string
	Year    int
}

type memoEntry struct {
	holidays  []model.Holiday
	updatedAt time.Time
}

// Service merges several sources and memoizes complete results in memory.
type Service struct {
	sources []Source
	ttl     time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	memo map[Key]memoEntry
}

// NewService creates a Service. Earlier sources win when two report the
// same date.
func NewService(ttl time.Duration, sources ...Source) *Service {
	return &Service{
		sources: sources,
		ttl:     ttl,
		now:     time.Now,
		memo:    make(map[Key]memoEntry),
	}
}

// Holidays returns the merged holidays of country in year. It fails only
// when the country code is malformed or every source failed.
func (s *Service) Holidays(ctx context.Context, country string, year int) ([]model.Holiday, error) {
	country = NormalizeCountry(country)
	if !ValidCountry(country) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCountry, country)
	}
	key := Key{Country: country, Year: year}

	s.mu.RLock()
	e, ok := s.memo[key]
	s.mu.RUnlock()
	if ok && s.now().Sub(e.updatedAt) < s.ttl {
		return e.holidays, nil
	}

	lists := make([][]model.Holiday, 0, len(s.sources))
	var errs []error
	for _, src := range s.sources {
		hs, err := src.Holidays(ctx, country, year)
		if err != nil {
			appLog.Error("holiday source failed", err, "source", src.Name(), "country", country, "year", year)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		lists = append(lists, hs)
	}
	if len(errs) > 0 && len(lists) == 0 {
		return nil, errors.Join(errs...)
	}

	merged := model.MergeHolidays(lists...)
	if len(errs) == 0 {
		s.mu.Lock()
		s.memo[key] = memoEntry{holidays: merged, updatedAt: s.now()}
		s.mu.Unlock()
	}
	return merged, nil
}

// Snapshot loads every key into a Table. Keys whose data cannot be loaded
// are left out, which the calculators read as "no holidays".
func (s *Service) Snapshot(ctx context.Context, keys ...Key) Table {
	t := make(Table, len(keys))
	for _, k := range keys {
		k.Country = NormalizeCountry(k.Country)
		if k.Country == "" {
			continue
		}
		if _, done := t[k]; done {
			continue
		}
		hs, err := s.Holidays(ctx, k.Country, k.Year)
		if err != nil {
			appLog.Warn("holiday data unavailable; treating as no holidays",
				"country", k.Country,
				"year", k.Year,
				"err", err,
			)
			continue
		}
		t[k] = hs
	}
	return t
}

// Prefetch warms every source's cache for the given countries and years and
// returns the number of keys that failed.
func (s *Service) Prefetch(ctx context.Context, countries []string, years ...int) int {
	failed := 0
	for _, k := range Keys(countries, years...) {
		if ctx.Err() != nil {
			return failed
		}
		if _, err := s.Holidays(ctx, k.Country, k.Year); err != nil {
			failed++
		}
	}
	appLog.Info("holiday prefetch done", "countries", len(countries), "years", len(years), "failed", failed)
	return failed
}

// Table is a loaded set of holiday lists.
type Table map[Key][]model.Holiday

// Func exposes t as the lookup capability the calculators take.
func (t Table) Func() civil.HolidayFunc {
	sets := make(map[Key]civil.Set, len(t))
	for k, hs := range t {
		sets[k] = model.DateSet(hs)
	}
	return func(country string, year int) civil.Set {
		return sets[Key{Country: NormalizeCountry(country), Year: year}]
	}
}

// Name returns the holiday name for d in country, or "".
func (t Table) Name(country string, d civil.Date) string {
	d = d.Normalize()
	for _, h := range t[Key{Country: NormalizeCountry(country), Year: d.Year}] {
		if h.Date == d {
			return h.Name
		}
	}
	return ""
}

// Keys expands countries and years into lookup keys, skipping blank and
// duplicate countries.
func Keys(countries []string, years ...int) []Key {
	seen := make(map[string]bool)
	out := make([]Key, 0, len(countries)*len(years))
	for _, cc := range countries {
		cc = NormalizeCountry(cc)
		if cc == "" || seen[cc] {
			continue
		}
		seen[cc] = true
		for _, y := range years {
			out = append(out, Key{Country: cc, Year: y})
		}
	}
	return out
}

// YearSpan returns every year from the year of from to the year of to.
func YearSpan(from, to civil.Date) []int {
	a, b := from.Normalize().Year, to.Normalize().Year
	if a > b {
		a, b = b, a
	}
	years := make([]int, 0, b-a+1)
	for y := a; y <= b; y++ {
		years = append(years, y)
	}
	return years
}
