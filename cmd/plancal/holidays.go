package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plancal/internal/holiday"
)

func newHolidaysCmd(a *app) *cobra.Command {
	var country string
	var year int

	cmd := &cobra.Command{
		Use:     "holidays",
		Short:   "List public holidays for a country and year",
		Example: `  plancal holidays --country JP --year 2026`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := holiday.NormalizeCountry(country)
			if !holiday.ValidCountry(cc) {
				return fmt.Errorf("--country: %w: %q", holiday.ErrInvalidCountry, country)
			}
			if year == 0 {
				year = time.Now().Year()
			}
			hs, err := a.holidayService().Holidays(cmd.Context(), cc, year)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), hs)
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "ISO 3166-1 alpha-2 country code")
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default current year)")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}
