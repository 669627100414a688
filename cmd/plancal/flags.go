package main

import (
	"fmt"
	"strings"

	"plancal/internal/holiday"
	"plancal/internal/overlap"
	"plancal/internal/tz"
)

// parseParticipant reads "Zone" or "Zone:CC", e.g. "Asia/Tokyo:JP".
func parseParticipant(s string) (overlap.Participant, error) {
	zone, cc, hasCC := strings.Cut(strings.TrimSpace(s), ":")
	if !tz.IsValid(zone) {
		return overlap.Participant{}, fmt.Errorf("%w: %q", tz.ErrInvalidTimeZone, zone)
	}
	p := overlap.Participant{Zone: zone}
	if hasCC {
		p.HolidayCountry = holiday.NormalizeCountry(cc)
		if !holiday.ValidCountry(p.HolidayCountry) {
			return overlap.Participant{}, fmt.Errorf("%w: %q", holiday.ErrInvalidCountry, cc)
		}
	}
	return p, nil
}

func participantCountries(ps []overlap.Participant) []string {
	var out []string
	for _, p := range ps {
		if p.HolidayCountry != "" {
			out = append(out, p.HolidayCountry)
		}
	}
	return out
}
