package domain

import "context"

// ReportFetcher retrieves the latest raw report for a station.
type ReportFetcher interface {
	FetchReport(ctx context.Context, station string) (string, error)
}
