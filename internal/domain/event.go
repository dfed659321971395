package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// EditRequest asks for one archive edit. Report is either a full report or a
// four-character station identifier; Time is YYYYMMDDHHMMSS.
type EditRequest struct {
	ID          string `json:"id"`
	ArchivePath string `json:"archive_path"`
	OutputPath  string `json:"output_path,omitempty"`
	Report      string `json:"report,omitempty"`
	Time        string `json:"time,omitempty"`
	MinWind     *int   `json:"min_wind,omitempty"`
	MaxWind     *int   `json:"max_wind,omitempty"`
}

// Edit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// EditResult is the outcome of an EditRequest, destined for the sink topic.
type EditResult struct {
	ID          string    `json:"id"`
	ArchivePath string    `json:"archive_path"`
	OutputPath  string    `json:"output_path,omitempty"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
