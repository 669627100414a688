package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"plancal/internal/civil"
	"plancal/internal/holiday"
	"plancal/internal/overlap"
	"plancal/internal/tz"
)

type overlapOptions struct {
	zones         []string
	date          string
	start, end    string
	businessHours bool
	meeting       int
	step          int
	weekdaysOnly  bool
	avoidHolidays bool
	sort          string
	primary       string
	overlapOnly   bool
	output        string
}

func newOverlapCmd(a *app) *cobra.Command {
	var o overlapOptions

	cmd := &cobra.Command{
		Use:   "overlap",
		Short: "Find meeting starts that fit every participant's working window",
		Example: `  plancal overlap --zone America/New_York:US --zone Europe/London:GB --date 2026-03-03 --business-hours
  plancal overlap --zone Asia/Tokyo --zone Europe/Berlin --start 08:00 --end 18:00 --sort overlap_first --overlap-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runOverlap(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&o.zones, "zone", nil, "participant as Zone or Zone:CC (repeatable)")
	f.StringVar(&o.date, "date", "", "UTC day to scan, YYYY-MM-DD (default today in the configured zone)")
	f.StringVar(&o.start, "start", "09:00", "local window start, HH:MM")
	f.StringVar(&o.end, "end", "17:00", "local window end, HH:MM")
	f.BoolVar(&o.businessHours, "business-hours", false, "use the fixed 09:00-17:00 window")
	f.IntVar(&o.meeting, "meeting", 0, "meeting length in minutes (default from config)")
	f.IntVar(&o.step, "step", 0, "minutes between candidate starts (default from config)")
	f.BoolVar(&o.weekdaysOnly, "weekdays-only", false, "reject slots on a local weekend")
	f.BoolVar(&o.avoidHolidays, "avoid-holidays", false, "reject slots on a participant's public holiday")
	f.StringVar(&o.sort, "sort", string(overlap.OrderChronological), "chronological or overlap_first")
	f.StringVar(&o.primary, "primary", "", "zone for overlap_first ordering (default first participant)")
	f.BoolVar(&o.overlapOnly, "overlap-only", false, "print only overlapping rows")
	f.StringVarP(&o.output, "output", "o", "table", "table or json")
	return cmd
}

func (a *app) runOverlap(cmd *cobra.Command, o overlapOptions) error {
	if o.output != "table" && o.output != "json" {
		return fmt.Errorf("--output: unknown format %q", o.output)
	}
	win := overlap.Window{
		BusinessHoursOnly: o.businessHours,
		WeekdaysOnly:      o.weekdaysOnly,
		AvoidHolidays:     o.avoidHolidays,
		MeetingMinutes:    a.cfg.Overlap.MeetingMinutes,
		StepMinutes:       a.cfg.Overlap.StepMinutes,
	}
	if o.meeting != 0 {
		win.MeetingMinutes = o.meeting
	}
	if o.step != 0 {
		win.StepMinutes = o.step
	}

	if o.date == "" {
		loc, err := tz.Load(a.cfg.Timezone)
		if err != nil {
			return err
		}
		win.Day = civil.FromTime(time.Now().In(loc))
	} else {
		d, err := civil.Parse(o.date)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		win.Day = d
	}

	for _, z := range o.zones {
		p, err := parseParticipant(z)
		if err != nil {
			return fmt.Errorf("--zone: %w", err)
		}
		win.Participants = append(win.Participants, p)
	}
	if !o.businessHours {
		var err error
		if win.StartMinute, err = overlap.ParseMinute(o.start); err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		if win.EndMinute, err = overlap.ParseMinute(o.end); err != nil {
			return fmt.Errorf("--end: %w", err)
		}
	}
	if err := win.Validate(); err != nil {
		return err
	}

	order, err := overlap.ParseOrder(o.sort)
	if err != nil {
		return err
	}
	primary := o.primary
	if primary == "" {
		primary = a.cfg.Timezone
		if len(win.Participants) > 0 {
			primary = win.Participants[0].Zone
		}
	}

	if countries := participantCountries(win.Participants); len(countries) > 0 {
		y := win.Day.Normalize().Year
		table := a.holidayService().Snapshot(cmd.Context(), holiday.Keys(countries, y-1, y, y+1)...)
		win.Holidays = table.Func()
	}

	rows, err := overlap.Evaluate(win)
	if err != nil {
		return err
	}
	summary := overlap.Summarize(rows)
	if err := overlap.Sort(rows, order, primary); err != nil {
		return err
	}
	if o.overlapOnly {
		kept := rows[:0]
		for _, row := range rows {
			if row.IsOverlap {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	if o.output == "json" {
		return printJSON(cmd.OutOrStdout(), struct {
			Date    civil.Date      `json:"date"`
			Order   overlap.Order   `json:"order"`
			Primary string          `json:"primary_zone"`
			Summary overlap.Summary `json:"summary"`
			Rows    []overlap.Row   `json:"rows"`
		}{win.Day, order, primary, summary, rows})
	}
	return printOverlapTable(cmd.OutOrStdout(), win.Participants, summary, rows)
}

func printOverlapTable(w io.Writer, ps []overlap.Participant, summary overlap.Summary, rows []overlap.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"UTC", "OK"}
	for _, p := range ps {
		header = append(header, p.Zone)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		cols := []string{row.Start.UTC().Format("15:04"), "-"}
		if row.IsOverlap {
			cols[1] = "yes"
		}
		for _, slot := range row.Slots {
			cell := slot.Label
			switch {
			case slot.Holiday:
				cell += " (holiday)"
			case slot.Weekend:
				cell += " (weekend)"
			case !slot.Fits:
				cell += " (x)"
			}
			cols = append(cols, cell)
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d candidate starts overlap\n", summary.Overlapping, summary.Candidates)
	return err
}
