package main

import (
	"os/signal"
	"syscall"

	"github.com/couchcryptid/miz-weather/internal/scheduler"
	"github.com/spf13/cobra"
)

func newWatchCmd(get func() *app) *cobra.Command {
	var (
		station, schedule string
		wind              windFlags
		output            outputFlags
	)
	cmd := &cobra.Command{
		Use:   "watch ARCHIVE",
		Short: "Re-apply the live report of a station on a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if schedule == "" {
				schedule = a.cfg.WatchSchedule
			}
			minWind, maxWind := wind.bounds(cmd, a)

			s := scheduler.New(a.editor(), a.logger)
			if err := s.Add(schedule, scheduler.Job{
				Station:     station,
				ArchivePath: args[0],
				OutputPath:  output.path(args[0]),
				MinWind:     minWind,
				MaxWind:     maxWind,
			}); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&station, "station", "s", "", "ICAO station to follow")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression (default WATCH_SCHEDULE)")
	_ = cmd.MarkFlagRequired("station")
	wind.register(cmd)
	output.register(cmd)
	return cmd
}
