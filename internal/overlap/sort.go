package overlap

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"plancal/internal/tz"
)

// Order selects how rows are presented.
type Order string

const (
	OrderChronological Order = "chronological"
	OrderOverlapFirst  Order = "overlap_first"
)

// ParseOrder maps a user-supplied value to an Order. Empty means
// chronological.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderChronological:
		return OrderChronological, nil
	case OrderOverlapFirst:
		return OrderOverlapFirst, nil
	}
	return "", fmt.Errorf("%w: unknown sort order %q", ErrConfiguration, s)
}

// Sort orders rows in place.
func Sort(rows []Row, order Order, primaryZone string) error {
	if order == OrderOverlapFirst {
		return SortOverlapFirst(rows, primaryZone)
	}
	SortChronological(rows)
	return nil
}

// SortChronological orders rows by UTC start.
func SortChronological(rows []Row) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		return a.Start.Compare(b.Start)
	})
}

// SortOverlapFirst moves overlapping rows ahead of the rest. Within each
// group rows are ordered by local start time of day in primaryZone, then
// by UTC start.
func SortOverlapFirst(rows []Row, primaryZone string) error {
	loc, err := tz.Load(primaryZone)
	if err != nil {
		return err
	}
	minute := func(t time.Time) int {
		l := t.In(loc)
		return l.Hour()*60 + l.Minute()
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		if a.IsOverlap != b.IsOverlap {
			if a.IsOverlap {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(minute(a.Start), minute(b.Start)); c != 0 {
			return c
		}
		return a.Start.Compare(b.Start)
	})
	return nil
}

// Summary condenses an evaluation.
type Summary struct {
	Candidates   int        `json:"candidates"`
	Overlapping  int        `json:"overlapping"`
	FirstOverlap *time.Time `json:"first_overlap,omitempty"`
	LastOverlap  *time.Time `json:"last_overlap,omitempty"`
}

// Summarize counts overlapping rows regardless of their order.
func Summarize(rows []Row) Summary {
	s := Summary{Candidates: len(rows)}
	for _, r := range rows {
		if !r.IsOverlap {
			continue
		}
		s.Overlapping++
		start := r.Start
		if s.FirstOverlap == nil || start.Before(*s.FirstOverlap) {
			s.FirstOverlap = &start
		}
		if s.LastOverlap == nil || start.After(*s.LastOverlap) {
			s.LastOverlap = &start
		}
	}
	return s
}
