package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/miz-weather/internal/adapter/miz"
	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	"github.com/couchcryptid/miz-weather/internal/miztest"
	"github.com/couchcryptid/miz-weather/internal/observability"
	"github.com/couchcryptid/miz-weather/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var processedAt = time.Date(2024, 5, 24, 8, 30, 0, 0, time.UTC)

func newTransformer(t *testing.T) *pipeline.EditTransformer {
	t.Helper()
	e := editor.New(nil, domain.NewRandomSource(7), discardLogger(), observability.NewMetricsForTesting(),
		miz.WithTempRoot(t.TempDir()))
	return pipeline.NewTransformer(e, clockwork.NewFakeClockAt(processedAt), discardLogger())
}

func encodeRequest(t *testing.T, req domain.EditRequest) []byte {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func TestEditTransformer_Success(t *testing.T) {
	src := miztest.Archive(t, miztest.Options{})
	out := filepath.Join(t.TempDir(), "out.miz")
	raw := domain.RawEvent{Value: encodeRequest(t, domain.EditRequest{
		ID:          "edit-1",
		ArchivePath: src,
		OutputPath:  out,
		Report:      "UGTB 240830Z 31017KT CAVOK 11/02 Q1012 NOSIG",
		Time:        "20240524083000",
	})}

	result, err := newTransformer(t).Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, domain.EditResult{
		ID:          "edit-1",
		ArchivePath: src,
		OutputPath:  out,
		Outcome:     domain.OutcomeSuccess,
		ProcessedAt: processedAt,
	}, result)
	assert.FileExists(t, out)
}

func TestEditTransformer_FailedEditIsAResult(t *testing.T) {
	src := miztest.Archive(t, miztest.Options{})
	raw := domain.RawEvent{Key: []byte("key-9"), Value: encodeRequest(t, domain.EditRequest{ArchivePath: src, Time: "plop"})}

	result, err := newTransformer(t).Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "key-9", result.ID, "message key is the fallback ID")
	assert.Equal(t, domain.OutcomeFailure, result.Outcome)
	assert.Equal(t, "badly formatted time string: plop", result.Error)
	assert.Empty(t, result.OutputPath)
}

func TestEditTransformer_GeneratesID(t *testing.T) {
	raw := domain.RawEvent{Value: []byte(`{"archive_path":"/nowhere/op.miz"}`)}

	result, err := newTransformer(t).Transform(context.Background(), raw)
	require.NoError(t, err)
	_, err = uuid.Parse(result.ID)
	require.NoError(t, err)
	assert.Equal(t, "nothing to do!", result.Error)
}

func TestEditTransformer_UndecodableRequests(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "not-json{{{"},
		{"no archive", `{"id":"edit-1","time":"20240524083000"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTransformer(t).Transform(context.Background(), domain.RawEvent{Value: []byte(tt.value)})
			require.ErrorContains(t, err, "decode edit request")
		})
	}
}

func TestEditTransformer_UsesKafkaSource(t *testing.T) {
	app := &mockApplier{err: errors.New("boom")}
	tfm := pipeline.NewTransformer(app, nil, discardLogger())

	result, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"id":"x","archive_path":"/a.miz"}`)})
	require.NoError(t, err)
	assert.Equal(t, editor.SourceKafka, app.source)
	assert.Equal(t, "boom", result.Error)
	assert.False(t, result.ProcessedAt.IsZero())
}

type mockApplier struct {
	source string
	err    error
}

func (m *mockApplier) Apply(_ context.Context, source string, _ domain.EditRequest) (string, error) {
	m.source = source
	return "", m.err
}
