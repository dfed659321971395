package main

import (
	"fmt"

	"github.com/couchcryptid/miz-weather/internal/adapter/miz"
	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	"github.com/spf13/cobra"
)

func newMetarCmd(get func() *app) *cobra.Command {
	var opts domain.EmitOptions
	cmd := &cobra.Command{
		Use:   "metar ARCHIVE",
		Short: "Print a report describing the weather of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := editor.ReportFromArchive(args[0], opts, miz.WithLogger(get().logger))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Station, "station", "s", domain.DefaultStation, "station identifier of the report")
	cmd.Flags().StringVar(&opts.TimeGroup, "time-group", "", "DDHHMMZ time group (default now, UTC)")
	return cmd
}
