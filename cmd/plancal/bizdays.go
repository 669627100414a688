package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"plancal/internal/bizdays"
	"plancal/internal/civil"
	"plancal/internal/holiday"
)

type bizFlags struct {
	country         string
	includeWeekends bool
}

func (f *bizFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.country, "country", "", "exclude this country's public holidays (ISO 3166-1 alpha-2)")
	cmd.Flags().BoolVar(&f.includeWeekends, "include-weekends", false, "count Saturdays and Sundays as business days")
}

// options builds the engine options, loading holidays for years when a
// country is set.
func (f *bizFlags) options(ctx context.Context, a *app, years []int) (bizdays.Options, string, error) {
	opts := bizdays.Options{ExcludeWeekends: !f.includeWeekends}
	if f.country == "" {
		return opts, "", nil
	}
	cc := holiday.NormalizeCountry(f.country)
	if !holiday.ValidCountry(cc) {
		return opts, "", fmt.Errorf("--country: %w: %q", holiday.ErrInvalidCountry, f.country)
	}
	table := a.holidayService().Snapshot(ctx, holiday.Keys([]string{cc}, years...)...)
	opts.Holidays = table.Func()
	return opts, cc, nil
}

func newBizdaysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bizdays",
		Short: "Business-day calculations",
	}
	cmd.AddCommand(newBizRangeCmd(a), newBizAddCmd(a))
	return cmd
}

func newBizRangeCmd(a *app) *cobra.Command {
	var f bizFlags
	var start, end string

	cmd := &cobra.Command{
		Use:     "range",
		Short:   "Count business days between two dates, both inclusive",
		Example: `  plancal bizdays range --start 2026-01-01 --end 2026-01-10 --country US`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := civil.Parse(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			e, err := civil.Parse(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if civil.Compare(s, e) > 0 {
				return fmt.Errorf("%w: start %s is after end %s", bizdays.ErrInvalidRange, s, e)
			}
			opts, cc, err := f.options(cmd.Context(), a, holiday.YearSpan(s, e))
			if err != nil {
				return err
			}
			res, err := bizdays.BetweenInclusive(s, e, cc, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newBizAddCmd(a *app) *cobra.Command {
	var f bizFlags
	var start string
	var days int

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Walk forward a number of business days",
		Example: `  plancal bizdays add --start 2026-01-01 --days 3 --country US`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := civil.Parse(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if days < 0 {
				return fmt.Errorf("%w: %d", bizdays.ErrInvalidCount, days)
			}
			opts, cc, err := f.options(cmd.Context(), a, holiday.YearSpan(s, s.AddDays(days*2+30)))
			if err != nil {
				return err
			}
			res, err := bizdays.Add(s, days, cc, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&start, "start", "", "day the walk starts after, YYYY-MM-DD")
	cmd.Flags().IntVar(&days, "days", 0, "business days to add")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("days")
	return cmd
}
