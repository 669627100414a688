package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"plancal/internal/config"
	"plancal/internal/holiday"
	"plancal/internal/ics"
	appLog "plancal/internal/log"
)

// app carries what every subcommand needs once the root has run.
type app struct {
	configPath string
	verbose    bool
	logFormat  string

	cfg *config.Config
}

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "plancal",
		Short: "plancal - timezone, business-day and meeting-overlap calculator",
		Long: `plancal converts wall-clock times between IANA zones, counts and adds
business days with weekend and public-holiday exclusion, and finds meeting
slots that fit every participant's local working window.

Calculations print JSON to stdout. "plancal serve" exposes the same
operations over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			info := commandContext{correlationID: uuid.New(), startedAt: time.Now()}
			cmd.SetContext(context.WithValue(cmd.Context(), commandContextKey{}, info))
			appLog.Debug("command start",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
			if !ok {
				return
			}
			appLog.Debug("command end",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
				"duration_ms", time.Since(info.startedAt).Milliseconds(),
			)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "./plancal.yaml", "config file path (created with defaults if missing)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json (overrides config)")

	root.AddCommand(
		newServeCmd(a),
		newConvertCmd(),
		newOffsetCmd(),
		newBizdaysCmd(a),
		newOverlapCmd(a),
		newHolidaysCmd(a),
	)
	return root
}

// load reads the config and configures logging to w.
func (a *app) load(w io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	format := appLog.Format(cfg.LogFormat)
	if a.logFormat != "" {
		format = appLog.Format(a.logFormat)
	}
	appLog.Configure(w, format)

	level := appLog.ParseLevel(cfg.LogLevel)
	if a.verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return nil
}

// holidayService wires the configured holiday sources. Earlier sources win
// on conflicting dates, so the public API comes before the feeds.
func (a *app) holidayService() *holiday.Service {
	h := a.cfg.Holidays
	sources := make([]holiday.Source, 0, 2)
	if h.APIBaseURL != "" {
		sources = append(sources, holiday.NewAPIClient(holiday.APIConfig{
			BaseURL:  h.APIBaseURL,
			CacheDir: h.CacheDir,
			MaxAge:   h.CacheMaxAge(),
			Timeout:  h.Timeout(),
		}))
	}
	if len(h.Feeds) > 0 {
		feeds := make([]ics.Feed, 0, len(h.Feeds))
		for _, f := range h.Feeds {
			feeds = append(feeds, ics.Feed{ID: f.ID, Country: f.Country, URL: f.URL})
		}
		fetcher := ics.NewFetcher(h.CacheDir+"/ics", h.Timeout())
		sources = append(sources, ics.NewFeedSource(fetcher, feeds))
	}
	return holiday.NewService(time.Hour, sources...)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

