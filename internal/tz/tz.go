// Package tz bridges civil wall-clock readings in IANA zones and UTC
// instants. The Go runtime's zone database is the only source of truth;
// an unknown zone is always an error, never a silent UTC fallback.
package tz

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTimeZone is returned for identifiers the zone database does
// not recognize.
var ErrInvalidTimeZone = errors.New("invalid time zone")

// LocalLayout renders a wall-clock reading without zone information.
const LocalLayout = "2006-01-02T15:04"

const displayLayout = "Mon, 02 Jan 2006 15:04 MST"

// locations caches loaded zones. *time.Location is immutable, so sharing
// across goroutines is safe.
var locations sync.Map

// Load resolves an IANA zone identifier.
//
// "" and "Local" are rejected: they resolve to UTC and the host zone
// respectively, neither of which is a zone the caller named.
func Load(zone string) (*time.Location, error) {
	if v, ok := locations.Load(zone); ok {
		return v.(*time.Location), nil
	}
	if zone == "" || zone == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}
	locations.Store(zone, loc)
	return loc, nil
}

// IsValid reports whether zone is a recognized IANA identifier.
func IsValid(zone string) bool {
	_, err := Load(zone)
	return err == nil
}

// OffsetAt returns the UTC offset of zone at instant, such that the local
// wall clock equals instant + offset.
func OffsetAt(zone string, instant time.Time) (time.Duration, error) {
	loc, err := Load(zone)
	if err != nil {
		return 0, err
	}
	return offsetIn(loc, instant), nil
}

// offsetIn renders instant as civil components in loc, reads those
// components back as if they were UTC and returns the difference.
func offsetIn(loc *time.Location, instant time.Time) time.Duration {
	base := instant.Truncate(time.Second)
	l := base.In(loc)
	asUTC := time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), 0, time.UTC)
	return asUTC.Sub(base)
}

// CivilToInstant converts a wall-clock reading in zone to a UTC instant.
//
// Readings that occur twice (fall-back) resolve to the earlier instant.
// Readings inside a spring-forward gap are interpreted with the offset in
// force before the transition, so the wall clock lands one gap later
// (02:30 in a 02:00-03:00 gap becomes 03:30).
func CivilToInstant(zone string, year int, month time.Month, day, hour, minute, second int) (time.Time, error) {
	loc, err := Load(zone)
	if err != nil {
		return time.Time{}, err
	}
	wall := time.Date(year, month, day, hour, minute, second, 0, time.UTC)
	return resolve(loc, wall), nil
}

// resolve finds the instant whose rendering in loc equals wall (a civil
// reading carried in a UTC time.Time).
func resolve(loc *time.Location, wall time.Time) time.Time {
	t := wall
	for i := 0; i < 2; i++ {
		t = wall.Add(-offsetIn(loc, t))
	}

	before := offsetIn(loc, wall.Add(-24*time.Hour))
	after := offsetIn(loc, wall.Add(24*time.Hour))
	if before == after {
		return t
	}

	// A transition is near: pick among the interpretations that are
	// self-consistent.
	var best time.Time
	found := false
	for _, off := range []time.Duration{before, after} {
		c := wall.Add(-off)
		if offsetIn(loc, c) != off {
			continue
		}
		if !found || c.Before(best) {
			best, found = c, true
		}
	}
	if found {
		return best
	}
	return wall.Add(-before)
}

// FormatLocal renders instant in zone for display.
func FormatLocal(instant time.Time, zone string) (string, error) {
	loc, err := Load(zone)
	if err != nil {
		return "", err
	}
	return instant.In(loc).Format(displayLayout), nil
}

// OffsetLabel renders the zone's offset at instant as "UTC±HH:MM".
func OffsetLabel(instant time.Time, zone string) (string, error) {
	off, err := OffsetAt(zone, instant)
	if err != nil {
		return "", err
	}
	return FormatOffset(off), nil
}

// FormatOffset renders off as "UTC±HH:MM". Zero renders as "UTC+00:00".
func FormatOffset(off time.Duration) string {
	sign := '+'
	if off < 0 {
		sign = '-'
		off = -off
	}
	mins := int(off / time.Minute)
	return fmt.Sprintf("UTC%c%02d:%02d", sign, mins/60, mins%60)
}
