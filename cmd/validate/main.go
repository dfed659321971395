// Command validate runs integrity checks over mission archives: required
// members, document decoding, round-trip stability of an unedited pack, and
// sanity of the stored weather and start time.
//
// Usage:
//
//	go run ./cmd/validate testdata/sample.miz other.miz
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/miz-weather/internal/adapter/miz"
	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// snapshot is what a round trip must preserve.
type snapshot struct {
	Members []string
	Weather domain.Weather
	Start   domain.MissionTime
	Sortie  string
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s archive.miz [archive.miz ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(flag.Args()))
}

func run(paths []string) int {
	fmt.Println("=== Mission Archive Integrity Validation ===")

	tmp, err := os.MkdirTemp("", "validate-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: create temp dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(tmp)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	structure := &phase{name: "Structure (members, decoding)"}
	roundTrip := &phase{name: "Round trip (unedited pack)"}
	sanity := &phase{name: "Sanity (weather, start time)"}

	for i, path := range paths {
		before, err := inspect(path, logger, tmp)
		if err != nil {
			structure.errorf("%s: %v", path, err)
			continue
		}

		validateSanity(sanity, path, before)

		packed := filepath.Join(tmp, fmt.Sprintf("roundtrip-%d%s", i, miz.Extension))
		validateRoundTrip(roundTrip, path, packed, before, logger, tmp)
	}

	phases := []*phase{structure, roundTrip, sanity}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}
	fmt.Printf("\nArchives: %d\n", len(paths))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// inspect opens and decodes an archive and reads back its snapshot.
func inspect(path string, logger *slog.Logger, tmp string) (snapshot, error) {
	var s snapshot
	err := miz.With(path, func(a *miz.Archive) error {
		mission, err := a.Mission()
		if err != nil {
			return err
		}
		s.Members = a.Members()
		s.Sortie = mission.Sortie()
		if s.Weather, err = mission.Weather().Snapshot(); err != nil {
			return fmt.Errorf("read weather: %w", err)
		}
		if s.Start, err = mission.StartTime(); err != nil {
			return fmt.Errorf("read start time: %w", err)
		}
		return nil
	}, miz.WithLogger(logger), miz.WithTempRoot(tmp))
	return s, err
}

func validateSanity(p *phase, path string, s snapshot) {
	if err := s.Weather.Validate(); err != nil {
		p.errorf("%s: stored weather rejected: %v", path, err)
	}
	// String normalizes out-of-range fields, so an impossible date reads
	// back different.
	if back, err := domain.ParseMissionTime(s.Start.String()); err != nil || back != s.Start {
		p.errorf("%s: stored start time %+v is not a valid date", path, s.Start)
	}
	for _, name := range miz.RequiredMembers {
		if !slices.Contains(s.Members, name) {
			p.errorf("%s: missing member %q", path, name)
		}
	}
}

// validateRoundTrip packs the archive unedited, checks the result reads back
// the same, and checks a second pack of it produces an identical mission
// member.
func validateRoundTrip(p *phase, path, packed string, before snapshot, logger *slog.Logger, tmp string) {
	err := miz.With(path, func(a *miz.Archive) error {
		_, err := a.Pack(packed)
		return err
	}, miz.WithLogger(logger), miz.WithTempRoot(tmp))
	if err != nil {
		p.errorf("%s: pack: %v", path, err)
		return
	}

	after, err := inspect(packed, logger, tmp)
	if err != nil {
		p.errorf("%s: reopen packed archive: %v", path, err)
		return
	}
	if diff := cmp.Diff(before, after); diff != "" {
		p.errorf("%s: round trip changed the archive (-before +after):\n%s", path, diff)
	}

	repacked := miz.DefaultOutputPath(packed)
	err = miz.With(packed, func(a *miz.Archive) error {
		_, err := a.Pack(repacked)
		return err
	}, miz.WithLogger(logger), miz.WithTempRoot(tmp))
	if err != nil {
		p.errorf("%s: second pack: %v", path, err)
		return
	}

	first, err := readMember(packed, miz.MemberMission)
	if err != nil {
		p.errorf("%s: %v", path, err)
		return
	}
	second, err := readMember(repacked, miz.MemberMission)
	if err != nil {
		p.errorf("%s: %v", path, err)
		return
	}
	if !bytes.Equal(first, second) {
		p.errorf("%s: mission member is not stable across packs (%d vs %d bytes)", path, len(first), len(second))
	}
}

func readMember(path, name string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("read %s in %s: %w", name, path, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s: no member %q", path, name)
}
