package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	appLog "plancal/internal/log"
	"plancal/internal/scheduler"
	"plancal/internal/store"
	"plancal/internal/tz"
	"plancal/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	var noPrefetch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			return a.serve(cmd.Context(), !noPrefetch)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().BoolVar(&noPrefetch, "no-prefetch", false, "skip the startup holiday prefetch")
	return cmd
}

func (a *app) serve(ctx context.Context, prefetch bool) error {
	cfg := a.cfg
	appLog.Info("plancal starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"countries", len(cfg.Holidays.Countries),
		"feeds", len(cfg.Holidays.Feeds),
		"store", cfg.StorePath,
	)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	holidays := a.holidayService()

	loc, err := tz.Load(cfg.Timezone)
	if err != nil {
		return err
	}
	job := scheduler.HolidayPrefetch(holidays, cfg.Holidays.Countries, loc, time.Now)
	sched, err := scheduler.New("holiday-prefetch", cfg.RefreshCron, loc, job)
	if err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Stop()
	if prefetch {
		go sched.RunNow(ctx)
	}

	srv := web.NewServer(cfg, holidays, st)
	err = srv.ListenAndServe(ctx)
	appLog.Info("plancal exiting")
	return err
}
