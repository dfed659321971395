package editor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/miz-weather/internal/adapter/miz"
	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	"github.com/couchcryptid/miz-weather/internal/miztest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFromArchive(t *testing.T) {
	src := miztest.Archive(t, miztest.Options{})
	before, err := os.ReadFile(src)
	require.NoError(t, err)

	report, err := editor.ReportFromArchive(src,
		domain.EmitOptions{Station: "UGTB", TimeGroup: "240830Z"},
		miz.WithLogger(discardLogger()), miz.WithTempRoot(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "UGTB 240830Z 18000MPS 9999M 20/20 Q1013 NOSIG", report)

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReportFromArchive_AfterEdit(t *testing.T) {
	src := miztest.Archive(t, miztest.Options{})
	out := filepath.Join(t.TempDir(), "out.miz")
	e, _ := newEditor(t, nil)
	require.Empty(t, e.Edit(context.Background(), editor.SourceCLI, domain.EditRequest{
		ArchivePath: src,
		OutputPath:  out,
		Report:      testReport,
	}))

	report, err := editor.ReportFromArchive(out,
		domain.EmitOptions{Station: "UGTB", TimeGroup: "240830Z"},
		miz.WithLogger(discardLogger()), miz.WithTempRoot(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "UGTB 240830Z 31008MPS 9999M 11/11 Q1012 NOSIG", report)
}

func TestReportFromArchive_Missing(t *testing.T) {
	_, err := editor.ReportFromArchive(filepath.Join(t.TempDir(), "missing.miz"), domain.EmitOptions{},
		miz.WithLogger(discardLogger()))
	require.ErrorIs(t, err, miz.ErrNotFound)
}
