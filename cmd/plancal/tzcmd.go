package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plancal/internal/tz"
)

func newConvertCmd() *cobra.Command {
	var from, to, at string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a wall-clock time from one zone to another",
		Example: `  plancal convert --from America/Los_Angeles --to Asia/Manila --at 2026-03-03T17:00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, hour, minute, err := tz.ParseLocal(at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			conv, err := tz.Convert(from, to, d, hour, minute)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), conv)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source IANA zone")
	cmd.Flags().StringVar(&to, "to", "", "target IANA zone")
	cmd.Flags().StringVar(&at, "at", "", "wall-clock time in the source zone, YYYY-MM-DDTHH:MM")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newOffsetCmd() *cobra.Command {
	var zone, at string

	cmd := &cobra.Command{
		Use:   "offset",
		Short: "Show a zone's UTC offset at an instant",
		Example: `  plancal offset --zone Asia/Kolkata
  plancal offset --zone America/New_York --at 2026-11-01T06:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instant := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %q is not RFC 3339", at)
				}
				instant = t.UTC()
			}
			reading, err := tz.Read(instant, zone)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Instant time.Time `json:"instant"`
				tz.Reading
			}{instant, reading})
		},
	}
	cmd.Flags().StringVar(&zone, "zone", "", "IANA zone")
	cmd.Flags().StringVar(&at, "at", "", "instant in RFC 3339 (default now)")
	_ = cmd.MarkFlagRequired("zone")
	return cmd
}
