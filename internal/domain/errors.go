package domain

import (
	"errors"
	"fmt"
)

// ErrArchive is the root of every archive container failure.
var ErrArchive = errors.New("archive error")

// ReportParseError reports a textual weather report that could not be read.
type ReportParseError struct {
	Report string
	Reason string
}

func (e *ReportParseError) Error() string {
	return fmt.Sprintf("unable to parse report %q: %s", e.Report, e.Reason)
}

// ValidationError is returned by WeatherState setters when a value falls
// outside the accepted range of its field or breaks a cross-field rule.
type ValidationError struct {
	Field  Field
	Value  int
	Min    int
	Max    int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s %d: must be in [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

// TimeFormatError reports a mission time string that is not YYYYMMDDHHMMSS.
type TimeFormatError struct {
	Input string
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("badly formatted time string: %s", e.Input)
}
