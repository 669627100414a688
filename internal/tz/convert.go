package tz

import (
	"fmt"
	"strings"
	"time"

	"plancal/internal/civil"
)

// Reading is a wall-clock rendering of an instant in one zone.
type Reading struct {
	Zone        string     `json:"zone"`
	Local       string     `json:"local"`
	Date        civil.Date `json:"date"`
	Display     string     `json:"display"`
	Offset      string     `json:"offset"`
	OffsetMins  int        `json:"offset_minutes"`
	Abbrev      string     `json:"abbreviation"`
	DST         bool       `json:"dst"`
	MinuteOfDay int        `json:"minute_of_day"`
}

// Conversion is the result of moving a wall-clock reading from one zone to
// another.
type Conversion struct {
	Instant time.Time `json:"instant"`
	From    Reading   `json:"from"`
	To      Reading   `json:"to"`
	// DayShift is the target local date minus the source local date.
	DayShift int `json:"day_shift"`
}

// Read renders instant in zone.
func Read(instant time.Time, zone string) (Reading, error) {
	loc, err := Load(zone)
	if err != nil {
		return Reading{}, err
	}
	return read(loc, zone, instant), nil
}

func read(loc *time.Location, zone string, instant time.Time) Reading {
	l := instant.In(loc)
	off := offsetIn(loc, instant)
	abbrev, _ := l.Zone()
	return Reading{
		Zone:        zone,
		Local:       l.Format(LocalLayout),
		Date:        civil.FromTime(l),
		Display:     l.Format(displayLayout),
		Offset:      FormatOffset(off),
		OffsetMins:  int(off / time.Minute),
		Abbrev:      abbrev,
		DST:         l.IsDST(),
		MinuteOfDay: l.Hour()*60 + l.Minute(),
	}
}

// Convert interprets a wall-clock reading in zone from and renders the same
// instant in zone to. Both zones are validated before any conversion.
func Convert(from, to string, date civil.Date, hour, minute int) (Conversion, error) {
	fromLoc, err := Load(from)
	if err != nil {
		return Conversion{}, err
	}
	toLoc, err := Load(to)
	if err != nil {
		return Conversion{}, err
	}

	d := date.Normalize()
	instant := resolve(fromLoc, time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, time.UTC))

	c := Conversion{
		Instant: instant.UTC(),
		From:    read(fromLoc, from, instant),
		To:      read(toLoc, to, instant),
	}
	c.DayShift = c.From.Date.DaysUntil(c.To.Date)
	return c, nil
}

// ParseLocal splits a "YYYY-MM-DDTHH:MM" wall-clock reading into its date
// and time of day. A space may stand in for the "T".
func ParseLocal(s string) (civil.Date, int, int, error) {
	datePart, clock, ok := strings.Cut(strings.Replace(strings.TrimSpace(s), " ", "T", 1), "T")
	if !ok {
		return civil.Date{}, 0, 0, fmt.Errorf("%w: %q (want YYYY-MM-DDTHH:MM)", civil.ErrInvalidFormat, s)
	}
	d, err := civil.Parse(datePart)
	if err != nil {
		return civil.Date{}, 0, 0, err
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return civil.Date{}, 0, 0, fmt.Errorf("%w: time of day %q (want HH:MM)", civil.ErrInvalidFormat, clock)
	}
	return d, t.Hour(), t.Minute(), nil
}
