package editor

import (
	"fmt"

	"github.com/couchcryptid/miz-weather/internal/adapter/miz"
	"github.com/couchcryptid/miz-weather/internal/domain"
)

// ReportFromArchive reads the weather of the mission at path and synthesizes a
// report describing it. The archive is not modified.
func ReportFromArchive(path string, opts domain.EmitOptions, archiveOpts ...miz.Option) (string, error) {
	var wx domain.Weather
	err := miz.With(path, func(a *miz.Archive) error {
		mission, err := a.Mission()
		if err != nil {
			return err
		}
		wx, err = mission.Weather().Snapshot()
		if err != nil {
			return fmt.Errorf("read mission weather: %w", err)
		}
		return nil
	}, archiveOpts...)
	if err != nil {
		return "", err
	}
	return domain.EmitReport(wx, opts), nil
}
