package web

import (
	"fmt"
	"net/http"
	"time"

	"plancal/internal/bizdays"
	"plancal/internal/civil"
	"plancal/internal/holiday"
	"plancal/internal/overlap"
	"plancal/internal/tz"
)

const (
	maxRangeDays    = 20 * 366
	maxAddDays      = 10000
	maxParticipants = 50
)

// holidayDTO is the JSON view of a holiday in /api/holidays.
type holidayDTO struct {
	Date   civil.Date `json:"date"`
	Name   string     `json:"name"`
	Source string     `json:"source"`
}

type holidaysResponse struct {
	Country  string       `json:"country"`
	Year     int          `json:"year"`
	Holidays []holidayDTO `json:"holidays"`
}

// handleHolidays proxies the holiday sources.
//
// GET /api/holidays?country=US&year=2026
//   - country: ISO 3166-1 alpha-2, required
//   - year:    defaults to the current year in the configured zone
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	country := holiday.NormalizeCountry(q.Get("country"))
	if !holiday.ValidCountry(country) {
		writeErr(w, r, fmt.Errorf("%w: country %q", holiday.ErrInvalidCountry, q.Get("country")))
		return
	}
	year, err := parseIntDefault(q.Get("year"), s.today().Year)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if year < 1 || year > 9999 {
		writeErr(w, r, badRequest("year out of range: %d", year))
		return
	}

	hs, err := s.holidays.Holidays(r.Context(), country, year)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			err = fmt.Errorf("%w: %v", holiday.ErrUpstream, err)
		}
		writeErr(w, r, err)
		return
	}

	resp := holidaysResponse{Country: country, Year: year, Holidays: make([]holidayDTO, 0, len(hs))}
	for _, h := range hs {
		resp.Holidays = append(resp.Holidays, holidayDTO{Date: h.Date, Name: h.Name, Source: h.Source})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleConvert moves a wall-clock reading between zones.
//
// GET /api/tz/convert?from=America/Los_Angeles&to=Asia/Manila&datetime=2026-03-03T17:00
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, local := q.Get("from"), q.Get("to"), q.Get("datetime")
	if from == "" || to == "" || local == "" {
		writeErr(w, r, badRequest("from, to and datetime are required"))
		return
	}
	d, hour, minute, err := tz.ParseLocal(local)
	if err != nil {
		writeErr(w, r, fmt.Errorf("datetime: %w", err))
		return
	}
	conv, err := tz.Convert(from, to, d, hour, minute)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type offsetResponse struct {
	Instant time.Time `json:"instant"`
	tz.Reading
}

// handleOffset reports a zone's offset at an instant.
//
// GET /api/tz/offset?zone=Asia/Kolkata&at=2026-07-01T12:00:00Z (at defaults to now)
func (s *Server) handleOffset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	zone := q.Get("zone")
	if zone == "" {
		writeErr(w, r, badRequest("zone is required"))
		return
	}
	at := s.now().UTC()
	if v := q.Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErr(w, r, badRequest("at: %q is not RFC 3339", v))
			return
		}
		at = t.UTC()
	}
	reading, err := tz.Read(at, zone)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offsetResponse{Instant: at, Reading: reading})
}

type bizRangeRequest struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	Country         string `json:"country"`
	ExcludeWeekends *bool  `json:"exclude_weekends"`
	UseHolidays     bool   `json:"use_holidays"`
}

type bizRangeResponse struct {
	bizdays.RangeResult
	Country      string            `json:"country,omitempty"`
	HolidayNames map[string]string `json:"holiday_names,omitempty"`
}

// handleBizRange counts business days in an inclusive range.
func (s *Server) handleBizRange(w http.ResponseWriter, r *http.Request) {
	var req bizRangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	start, err := parseDateField("start", req.Start)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	end, err := parseDateField("end", req.End)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	country, err := holidayCountry(req.Country, req.UseHolidays)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if start.DaysUntil(end) > maxRangeDays {
		writeErr(w, r, badRequest("range longer than %d days", maxRangeDays))
		return
	}

	opts := bizdays.Options{ExcludeWeekends: boolDefault(req.ExcludeWeekends, true)}
	var table holiday.Table
	if country != "" && civil.Compare(start, end) <= 0 {
		table = s.holidays.Snapshot(r.Context(), holiday.Keys([]string{country}, holiday.YearSpan(start, end)...)...)
		opts.Holidays = table.Func()
	}

	res, err := bizdays.BetweenInclusive(start, end, country, opts)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bizRangeResponse{
		RangeResult:  res,
		Country:      country,
		HolidayNames: holidayNames(table, country, res.HolidaysHit),
	})
}

type bizAddRequest struct {
	Start           string `json:"start"`
	Days            *int   `json:"days"`
	Country         string `json:"country"`
	ExcludeWeekends *bool  `json:"exclude_weekends"`
	UseHolidays     bool   `json:"use_holidays"`
}

type bizAddResponse struct {
	bizdays.AddResult
	Country      string            `json:"country,omitempty"`
	HolidayNames map[string]string `json:"holiday_names,omitempty"`
}

// handleBizAdd walks forward a number of business days.
func (s *Server) handleBizAdd(w http.ResponseWriter, r *http.Request) {
	var req bizAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	start, err := parseDateField("start", req.Start)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Days == nil {
		writeErr(w, r, badRequest("days is required"))
		return
	}
	n := *req.Days
	if n > maxAddDays {
		writeErr(w, r, badRequest("days larger than %d", maxAddDays))
		return
	}
	country, err := holidayCountry(req.Country, req.UseHolidays)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	opts := bizdays.Options{ExcludeWeekends: boolDefault(req.ExcludeWeekends, true)}
	var table holiday.Table
	if country != "" && n > 0 {
		// Weekends cost 2 of 7 days; the slack covers a busy holiday year.
		horizon := start.AddDays(n*2 + 30)
		table = s.holidays.Snapshot(r.Context(), holiday.Keys([]string{country}, holiday.YearSpan(start, horizon)...)...)
		opts.Holidays = table.Func()
	}

	res, err := bizdays.Add(start, n, country, opts)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bizAddResponse{
		AddResult:    res,
		Country:      country,
		HolidayNames: holidayNames(table, country, res.SkippedDates),
	})
}

type overlapRequest struct {
	Date           string                `json:"date"`
	Participants   []overlap.Participant `json:"participants"`
	Start          string                `json:"start"`
	End            string                `json:"end"`
	BusinessHours  bool                  `json:"business_hours"`
	MeetingMinutes *int                  `json:"meeting_minutes"`
	StepMinutes    *int                  `json:"step_minutes"`
	WeekdaysOnly   bool                  `json:"weekdays_only"`
	AvoidHolidays  bool                  `json:"avoid_holidays"`
	Sort           string                `json:"sort"`
	PrimaryZone    string                `json:"primary_zone"`
	OverlapOnly    bool                  `json:"overlap_only"`
}

type overlapResponse struct {
	Date        civil.Date      `json:"date"`
	Order       overlap.Order   `json:"order"`
	PrimaryZone string          `json:"primary_zone"`
	WindowStart string          `json:"window_start"`
	WindowEnd   string          `json:"window_end"`
	Summary     overlap.Summary `json:"summary"`
	Rows        []overlap.Row   `json:"rows"`
}

// handleOverlap evaluates meeting overlap across participant zones.
func (s *Server) handleOverlap(w http.ResponseWriter, r *http.Request) {
	var req overlapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	win, err := s.overlapWindow(req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	order, err := overlap.ParseOrder(req.Sort)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	primary := req.PrimaryZone
	if primary == "" {
		primary = s.defaultZone()
		if len(win.Participants) > 0 {
			primary = win.Participants[0].Zone
		}
	}
	if !tz.IsValid(primary) {
		writeErr(w, r, fmt.Errorf("primary_zone: %w: %q", tz.ErrInvalidTimeZone, primary))
		return
	}
	if err := win.Validate(); err != nil {
		writeErr(w, r, err)
		return
	}

	if countries := participantCountries(win.Participants); len(countries) > 0 {
		y := win.Day.Normalize().Year
		table := s.holidays.Snapshot(r.Context(), holiday.Keys(countries, y-1, y, y+1)...)
		win.Holidays = table.Func()
	}

	rows, err := overlap.Evaluate(win)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	summary := overlap.Summarize(rows)
	if err := overlap.Sort(rows, order, primary); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.OverlapOnly {
		kept := rows[:0]
		for _, row := range rows {
			if row.IsOverlap {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	ws, we := win.Bounds()
	writeJSON(w, http.StatusOK, overlapResponse{
		Date:        win.Day,
		Order:       order,
		PrimaryZone: primary,
		WindowStart: overlap.FormatMinute(ws),
		WindowEnd:   overlap.FormatMinute(we),
		Summary:     summary,
		Rows:        rows,
	})
}

func (s *Server) overlapWindow(req overlapRequest) (overlap.Window, error) {
	win := overlap.Window{
		BusinessHoursOnly: req.BusinessHours,
		WeekdaysOnly:      req.WeekdaysOnly,
		AvoidHolidays:     req.AvoidHolidays,
		StepMinutes:       intDefault(req.StepMinutes, s.cfg.Overlap.StepMinutes),
		MeetingMinutes:    intDefault(req.MeetingMinutes, s.cfg.Overlap.MeetingMinutes),
	}

	if req.Date == "" {
		win.Day = s.today()
	} else {
		d, err := parseDateField("date", req.Date)
		if err != nil {
			return win, err
		}
		win.Day = d
	}

	if len(req.Participants) > maxParticipants {
		return win, badRequest("at most %d participants", maxParticipants)
	}
	win.Participants = make([]overlap.Participant, 0, len(req.Participants))
	for i, p := range req.Participants {
		if p.HolidayCountry != "" {
			p.HolidayCountry = holiday.NormalizeCountry(p.HolidayCountry)
			if !holiday.ValidCountry(p.HolidayCountry) {
				return win, fmt.Errorf("participant %d: %w: %q", i, holiday.ErrInvalidCountry, p.HolidayCountry)
			}
		}
		win.Participants = append(win.Participants, p)
	}

	if !req.BusinessHours {
		if req.Start == "" || req.End == "" {
			return win, badRequest("start and end are required unless business_hours is set")
		}
		var err error
		if win.StartMinute, err = overlap.ParseMinute(req.Start); err != nil {
			return win, fmt.Errorf("start: %w", err)
		}
		if win.EndMinute, err = overlap.ParseMinute(req.End); err != nil {
			return win, fmt.Errorf("end: %w", err)
		}
	}
	return win, nil
}

// today is the current civil date in the configured zone.
func (s *Server) today() civil.Date {
	loc, err := tz.Load(s.defaultZone())
	if err != nil {
		loc = time.UTC
	}
	return civil.FromTime(s.now().In(loc))
}

func parseDateField(field, v string) (civil.Date, error) {
	if v == "" {
		return civil.Date{}, badRequest("%s is required", field)
	}
	d, err := civil.Parse(v)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// holidayCountry validates the country of a business-day request. It
// returns "" when holidays are not in play.
func holidayCountry(raw string, useHolidays bool) (string, error) {
	if !useHolidays {
		return "", nil
	}
	cc := holiday.NormalizeCountry(raw)
	if !holiday.ValidCountry(cc) {
		return "", fmt.Errorf("%w: country %q (required with use_holidays)", holiday.ErrInvalidCountry, raw)
	}
	return cc, nil
}

func participantCountries(ps []overlap.Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.HolidayCountry != "" {
			out = append(out, p.HolidayCountry)
		}
	}
	return out
}

// holidayNames maps the holiday days among dates to their names.
func holidayNames(table holiday.Table, country string, dates []civil.Date) map[string]string {
	if len(table) == 0 || len(dates) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, d := range dates {
		if name := table.Name(country, d); name != "" {
			out[d.String()] = name
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
