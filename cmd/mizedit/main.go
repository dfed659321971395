// Command mizedit edits the weather and start time of mission archives.
//
// Usage:
//
//	mizedit edit mission.miz --report "UGTB 240830Z 31017KT CAVOK 11/02 Q1012 NOSIG"
//	mizedit edit mission.miz --report UGTB --time 20240524083000 --in-place
//	mizedit metar mission.miz --station UGTB
//	mizedit watch mission.miz --station UGTB --schedule "*/30 * * * *"
//	mizedit serve
//
// Settings are read from the environment and an optional .env file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/miz-weather/internal/adapter/awc"
	"github.com/couchcryptid/miz-weather/internal/config"
	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	"github.com/couchcryptid/miz-weather/internal/observability"
	"github.com/spf13/cobra"
)

// newMetrics registers the process metrics; tests swap it for an unregistered
// set.
var newMetrics = observability.NewMetrics

// app holds what every subcommand shares.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &app{
		cfg:     cfg,
		logger:  observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat),
		metrics: newMetrics(),
	}, nil
}

// fetcher builds the cached report client.
func (a *app) fetcher() domain.ReportFetcher {
	client := awc.NewClient(awc.ClientConfig{
		BaseURL:    a.cfg.AWCBaseURL,
		Timeout:    a.cfg.AWCTimeout,
		MaxRetries: a.cfg.AWCMaxRetries,
	}, a.logger, a.metrics)
	return awc.NewCachedFetcher(client, a.cfg.AWCCacheSize, a.cfg.AWCCacheTTL, nil, a.metrics)
}

func (a *app) editor() *editor.Editor {
	return editor.New(a.fetcher(), nil, a.logger, a.metrics)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "mizedit",
		Short:         "Edit the weather and start time of mission archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			a, err = newApp()
			return err
		},
	}
	root.AddCommand(
		newEditCmd(func() *app { return a }),
		newMetarCmd(func() *app { return a }),
		newWatchCmd(func() *app { return a }),
		newServeCmd(func() *app { return a }),
	)
	return root
}
