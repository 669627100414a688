package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"plancal/internal/civil"
	appLog "plancal/internal/log"
)

// Entry is a VEVENT reduced to what a holiday calendar needs: the civil
// day it starts on, how many days it covers and its recurrence.
type Entry struct {
	UID     string
	Summary string

	Start civil.Date
	Days  int

	RawRRule   string
	ExDates    []civil.Date
	Recurrence *civil.Date // RECURRENCE-ID for a moved instance
	Cancelled  bool
}

// IsOverride reports whether e replaces one instance of a recurring entry.
func (e Entry) IsOverride() bool { return e.Recurrence != nil }

// Parse parses an ICS payload. VEVENTs that cannot be read are logged and
// skipped.
func Parse(feed Feed, body []byte) ([]Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", feed.ID, "url", redactURL(feed.URL))
		return nil, err
	}

	entries := make([]Entry, 0)
	for _, ve := range cal.Events() {
		e, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", feed.ID)
			continue
		}
		entries = append(entries, e)
	}

	appLog.Debug("ics parse completed", "id", feed.ID, "entries", len(entries))
	return entries, nil
}

func parseVEvent(ve *ical.VEvent) (Entry, error) {
	var out Entry

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty("STATUS"); p != nil {
		out.Cancelled = strings.EqualFold(strings.TrimSpace(p.Value), "CANCELLED")
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}

	if isDateValue(dtStart) {
		start, err := parseDateValue(dtStart.Value)
		if err != nil {
			return out, err
		}
		out.Start = start
		out.Days = 1
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := parseDateValue(dtEnd.Value); err == nil && end.After(start) {
				// DTEND of an all-day event is exclusive.
				out.Days = start.DaysUntil(end)
			}
		}
	} else {
		// Timed entries count for the day they start on, in their own zone.
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = civil.FromTime(start)
		out.Days = 1
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if d, err := parseDateValue(part); err == nil {
				out.ExDates = append(out.ExDates, d)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if d, err := parseDateValue(p.Value); err == nil {
			out.Recurrence = &d
		}
	}

	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseDateValue reads the date part of an ICS DATE or DATE-TIME value.
func parseDateValue(v string) (civil.Date, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return civil.Date{}, errors.New("short ICS date value")
	}
	t, err := time.ParseInLocation("20060102", v[:8], time.UTC)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.FromTime(t), nil
}
