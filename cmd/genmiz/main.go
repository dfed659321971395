// Command genmiz writes a minimal but complete mission archive, for trying the
// editor out and for fixtures. The weather can be derived from a report with a
// fixed seed so the output is reproducible.
//
// Usage:
//
//	go run ./cmd/genmiz -out testdata/sample.miz
//	go run ./cmd/genmiz -out testdata/snow.miz -report "UGTB 240830Z 09010MPS 4000 -SN BKN010 M02/M03 Q0998" -seed 7
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/miztest"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output archive path (.miz)")
	sortie := flag.String("sortie", "", "mission name")
	at := flag.String("time", "", "mission start time as YYYYMMDDHHMMSS")
	report := flag.String("report", "", "report to derive the mission weather from")
	seed := flag.Uint64("seed", 1, "random seed used when deriving weather")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fixed clock so season defaults and time groups are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2011, time.June, 1, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	opts := miztest.Options{Sortie: *sortie}

	if *at != "" {
		mt, err := domain.ParseMissionTime(*at)
		if err != nil {
			return err
		}
		opts.Time = &mt
	}

	if *report != "" {
		obs, err := domain.ParseReport(*report)
		if err != nil {
			return err
		}
		wx, err := domain.DeriveWeather(obs, domain.DefaultIngestOptions(domain.NewRandomSource(*seed)))
		if err != nil {
			return err
		}
		opts.Weather = &wx
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := miztest.Write(*out, opts); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}
