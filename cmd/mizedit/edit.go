package main

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	"github.com/spf13/cobra"
)

// windFlags are the ground wind bounds shared by edit and watch.
type windFlags struct {
	min, max int
}

func (w *windFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&w.min, "min-wind", 0, "minimum ground wind (m/s) drawn when the report has none; defaults to MIN_WIND")
	cmd.Flags().IntVar(&w.max, "max-wind", 0, "maximum ground wind (m/s) drawn when the report has none; defaults to MAX_WIND")
}

// bounds returns the flag values, falling back to the configured ones.
func (w *windFlags) bounds(cmd *cobra.Command, a *app) (minWind, maxWind *int) {
	lo, hi := a.cfg.MinWind, a.cfg.MaxWind
	if cmd.Flags().Changed("min-wind") {
		lo = w.min
	}
	if cmd.Flags().Changed("max-wind") {
		hi = w.max
	}
	return &lo, &hi
}

// outputFlags select where an edited archive is written.
type outputFlags struct {
	out     string
	inPlace bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "output archive (default <name>_EDITED.miz)")
	cmd.Flags().BoolVar(&o.inPlace, "in-place", false, "overwrite the source archive")
	cmd.MarkFlagsMutuallyExclusive("out", "in-place")
}

func (o *outputFlags) path(archive string) string {
	if o.inPlace {
		return archive
	}
	return o.out
}

func newEditCmd(get func() *app) *cobra.Command {
	var (
		report, at string
		wind       windFlags
		output     outputFlags
	)
	cmd := &cobra.Command{
		Use:   "edit ARCHIVE",
		Short: "Apply a weather report and/or a start time to an archive",
		Long: "Apply a weather report and/or a start time to an archive.\n\n" +
			"The report is either a full METAR or a 4-character ICAO station whose\n" +
			"current report is retrieved. The time is YYYYMMDDHHMMSS.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			minWind, maxWind := wind.bounds(cmd, a)
			req := domain.EditRequest{
				ArchivePath: args[0],
				OutputPath:  output.path(args[0]),
				Report:      report,
				Time:        at,
				MinWind:     minWind,
				MaxWind:     maxWind,
			}
			written, err := a.editor().Apply(cmd.Context(), editor.SourceCLI, req)
			if err != nil {
				return errors.New(editor.Message(req, err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), written)
			return nil
		},
	}
	cmd.Flags().StringVarP(&report, "report", "r", "", "METAR string or ICAO station")
	cmd.Flags().StringVarP(&at, "time", "t", "", "mission start time as YYYYMMDDHHMMSS")
	wind.register(cmd)
	output.register(cmd)
	return cmd
}
