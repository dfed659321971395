package miz

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// DefaultOutputPath returns <stem>_EDITED<ext> next to the source archive.
func DefaultOutputPath(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + "_EDITED" + ext
}

// Pack re-encodes the decoded documents, when there are any, and writes every
// member to dest in the original archive order. An empty dest selects
// DefaultOutputPath. The absolute destination path is returned.
func (a *Archive) Pack(dest string) (string, error) {
	if a.closed {
		return "", ErrClosed
	}
	if a.Decoded() {
		if err := a.Encode(); err != nil {
			return "", err
		}
	}
	if dest == "" {
		dest = DefaultOutputPath(a.path)
	}
	dest, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dest, err)
	}
	a.logger.Debug("packing archive", "dest", dest, "members", len(a.members))

	if err := checkWritable(dest); err != nil {
		return "", fmt.Errorf("%w: cannot write %s: %v", ErrPermissionDenied, dest, err)
	}

	// Members go to a sibling temp file that replaces dest only once the
	// archive is complete, so a failed pack leaves dest untouched. This also
	// covers packing over the source archive.
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: cannot write %s: %v", ErrPermissionDenied, dest, err)
	}
	tmp := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(f)
	for _, name := range a.members {
		if err := a.packMember(zw, name); err != nil {
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finish %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("%w: cannot write %s: %v", ErrPermissionDenied, dest, err)
	}
	committed = true
	a.logger.Debug("archive packed", "dest", dest)
	return dest, nil
}

// checkWritable opens an existing dest for writing without truncating it.
func checkWritable(dest string) error {
	info, err := os.Stat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("is a directory")
	}
	f, err := os.OpenFile(dest, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

func (a *Archive) packMember(zw *zip.Writer, name string) error {
	p, err := a.memberPath(name)
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if err != nil {
		return &MissingMemberError{Name: name}
	}
	if info.IsDir() {
		_, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: info.ModTime()})
		return err
	}

	src, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: info.ModTime()})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	a.logger.Debug("member packed", "member", name, "bytes", info.Size())
	return nil
}
