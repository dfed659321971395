// Package miz opens mission archives, exposes their decoded documents and
// writes them back.
//
// An Archive owns a private temporary directory holding every extracted
// member. The usual lifecycle is Open, Decode, mutate through Mission, Pack
// and Close. When an error occurs while the archive is open, CloseWithError
// keeps the temporary directory for inspection and returns the error.
package miz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Extension is the file extension of mission archives.
const Extension = ".miz"

// Member names, relative to the archive root.
const (
	MemberMission     = "mission"
	MemberOptions     = "options"
	MemberWarehouses  = "warehouses"
	MemberDictionary  = "l10n/DEFAULT/dictionary"
	MemberMapResource = "l10n/DEFAULT/mapResource"
)

// RequiredMembers must be present in every archive.
var RequiredMembers = []string{
	MemberMission,
	MemberOptions,
	MemberWarehouses,
	MemberDictionary,
	MemberMapResource,
}

var localHeaderSig = []byte("PK\x03\x04")

// Archive is one open mission archive.
type Archive struct {
	path        string
	tempDir     string
	tempRoot    string
	logger      *slog.Logger
	overwrite   bool
	keepTempDir bool

	members   []string
	extracted bool
	closed    bool

	mapResource *document
	dictionary  *document
	mission     *document
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) { a.logger = l }
}

// WithOverwrite allows Extract to run again over an extracted archive.
func WithOverwrite(overwrite bool) Option {
	return func(a *Archive) { a.overwrite = overwrite }
}

// WithKeepTempDir keeps the temporary directory on Close.
func WithKeepTempDir(keep bool) Option {
	return func(a *Archive) { a.keepTempDir = keep }
}

// WithTempRoot creates the temporary directory under root instead of the
// system default.
func WithTempRoot(root string) Option {
	return func(a *Archive) { a.tempRoot = root }
}

// Open checks that path is a readable mission archive and extracts it.
func Open(path string, opts ...Option) (*Archive, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	a := &Archive{path: abs, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	if err := checkArchiveFile(abs); err != nil {
		return nil, err
	}

	a.tempDir, err = os.MkdirTemp(a.tempRoot, "miz-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	a.logger.Debug("temporary directory created", "archive", a.path, "dir", a.tempDir)

	if err := a.Extract(); err != nil {
		return nil, a.CloseWithError(err)
	}
	return a, nil
}

func checkArchiveFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: cannot read %s", ErrPermissionDenied, path)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() || !strings.EqualFold(filepath.Ext(path), Extension) {
		return fmt.Errorf("%w: %s", ErrNotAnArchive, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: cannot read %s", ErrPermissionDenied, path)
	}
	defer f.Close()

	sig := make([]byte, len(localHeaderSig))
	if _, err := io.ReadFull(f, sig); err != nil || !bytes.Equal(sig, localHeaderSig) {
		return fmt.Errorf("%w: %s has no archive signature", ErrNotAnArchive, path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, path, err)
	}
	return zr.Close()
}

// Path returns the absolute path of the source archive.
func (a *Archive) Path() string { return a.path }

// TempDir returns the extraction directory.
func (a *Archive) TempDir() string { return a.tempDir }

// Members returns the member names in archive order.
func (a *Archive) Members() []string { return append([]string(nil), a.members...) }

// Extract unpacks every member into the temporary directory, then checks that
// the required members exist and that every listed member is on disk.
func (a *Archive) Extract() error {
	if a.closed {
		return ErrClosed
	}
	if a.extracted && !a.overwrite {
		return fmt.Errorf("%w: %s", ErrAlreadyExtracted, a.tempDir)
	}

	zr, err := zip.OpenReader(a.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, a.path, err)
	}
	defer zr.Close()

	members := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		a.logger.Debug("extracting member", "member", f.Name)
		if err := a.extractMember(f); err != nil {
			return err
		}
		members = append(members, f.Name)
	}
	a.members = members
	a.extracted = true

	for _, name := range RequiredMembers {
		if !a.onDisk(name) {
			a.logger.Error("missing member in archive", "archive", a.path, "member", name)
			return &MissingMemberError{Name: name}
		}
	}
	for _, name := range members {
		if !a.onDisk(name) {
			return &MissingMemberError{Name: name}
		}
	}
	a.logger.Debug("archive extracted", "archive", a.path, "members", len(members))
	return nil
}

func (a *Archive) extractMember(f *zip.File) error {
	target, err := a.memberPath(f.Name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open member %s: %v", ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: read member %s: %v", ErrCorruptArchive, f.Name, err)
	}
	return out.Close()
}

// memberPath resolves a member name inside the temporary directory and
// rejects names that escape it.
func (a *Archive) memberPath(name string) (string, error) {
	target := filepath.Join(a.tempDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(a.tempDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: illegal member path %q", ErrCorruptArchive, name)
	}
	return target, nil
}

func (a *Archive) onDisk(name string) bool {
	p, err := a.memberPath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Close removes the temporary directory unless WithKeepTempDir was given.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.keepTempDir {
		a.logger.Debug("keeping temp dir", "dir", a.tempDir)
		return nil
	}
	a.logger.Debug("removing temp dir", "dir", a.tempDir)
	if err := os.RemoveAll(a.tempDir); err != nil {
		return fmt.Errorf("remove temp dir: %w", err)
	}
	return nil
}

// CloseWithError marks the archive closed without removing the temporary
// directory, logs where it was kept and returns err.
func (a *Archive) CloseWithError(err error) error {
	if !a.closed {
		a.closed = true
		a.logger.Error("error while the archive was open, keeping temp dir",
			"archive", a.path, "dir", a.tempDir, "error", err)
	}
	return err
}

// With opens and decodes the archive at path, runs fn and closes it. When
// opening, decoding or fn fails, the temporary directory is kept and the
// error returned.
func With(path string, fn func(*Archive) error, opts ...Option) error {
	a, err := Open(path, opts...)
	if err != nil {
		return err
	}
	if err := a.Decode(); err != nil {
		return a.CloseWithError(err)
	}
	if err := fn(a); err != nil {
		return a.CloseWithError(err)
	}
	return a.Close()
}
