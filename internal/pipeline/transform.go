package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Applier runs one archive edit and returns the written path.
type Applier interface {
	Apply(ctx context.Context, source string, req domain.EditRequest) (string, error)
}

// EditTransformer implements Transformer by running the edit a message asks
// for. Messages that cannot be decoded are errors; failed edits are results.
type EditTransformer struct {
	applier Applier
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewTransformer creates an EditTransformer. A nil clock uses the real clock.
func NewTransformer(applier Applier, clk clockwork.Clock, logger *slog.Logger) *EditTransformer {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &EditTransformer{applier: applier, clock: clk, logger: logger}
}

func (t *EditTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.EditResult, error) {
	req, err := decodeRequest(raw)
	if err != nil {
		return domain.EditResult{}, err
	}

	result := domain.EditResult{
		ID:          req.ID,
		ArchivePath: req.ArchivePath,
		Outcome:     domain.OutcomeSuccess,
	}
	out, err := t.applier.Apply(ctx, editor.SourceKafka, req)
	if err != nil {
		result.Outcome = domain.OutcomeFailure
		result.Error = editor.Message(req, err)
	}
	result.OutputPath = out
	result.ProcessedAt = t.clock.Now().UTC()
	return result, nil
}

// decodeRequest reads an EditRequest from the message value, assigning an ID
// when the producer did not.
func decodeRequest(raw domain.RawEvent) (domain.EditRequest, error) {
	var req domain.EditRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.EditRequest{}, fmt.Errorf("decode edit request: %w", err)
	}
	if req.ArchivePath == "" {
		return domain.EditRequest{}, errors.New("decode edit request: archive_path is required")
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req, nil
}
