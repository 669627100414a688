package scheduler

import (
	"context"
	"time"
)

// Prefetcher warms holiday data for a set of countries and years and
// reports how many keys failed.
type Prefetcher interface {
	Prefetch(ctx context.Context, countries []string, years ...int) int
}

// HolidayPrefetch returns a Job that loads the current and next year of
// holidays for countries. now decides the current year in loc.
func HolidayPrefetch(p Prefetcher, countries []string, loc *time.Location, now func() time.Time) Job {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) {
		if len(countries) == 0 {
			return
		}
		y := now().In(loc).Year()
		p.Prefetch(ctx, countries, y, y+1)
	}
}
