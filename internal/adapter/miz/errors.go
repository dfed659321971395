package miz

import (
	"fmt"

	"github.com/couchcryptid/miz-weather/internal/domain"
)

// Archive failures. Every one matches domain.ErrArchive with errors.Is.
var (
	ErrNotFound         = fmt.Errorf("%w: file not found", domain.ErrArchive)
	ErrNotAnArchive     = fmt.Errorf("%w: not a mission archive", domain.ErrArchive)
	ErrCorruptArchive   = fmt.Errorf("%w: corrupt archive", domain.ErrArchive)
	ErrPermissionDenied = fmt.Errorf("%w: permission denied", domain.ErrArchive)
	ErrAlreadyExtracted = fmt.Errorf("%w: archive already extracted", domain.ErrArchive)
	ErrNotDecoded       = fmt.Errorf("%w: archive not decoded", domain.ErrArchive)
	ErrClosed           = fmt.Errorf("%w: archive closed", domain.ErrArchive)
)

// MissingMemberError reports a required member absent from an archive, or a
// listed member that did not land on disk after extraction.
type MissingMemberError struct {
	Name string
}

func (e *MissingMemberError) Error() string {
	return fmt.Sprintf("%v: missing member %q", domain.ErrArchive, e.Name)
}

func (e *MissingMemberError) Unwrap() error { return domain.ErrArchive }
