// Package awc retrieves current raw weather reports from the Aviation Weather
// Center data API.
package awc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/couchcryptid/miz-weather/internal/observability"
	"github.com/sony/gobreaker"
)

var (
	// ErrInvalidStation is returned for identifiers that are not four
	// letters or digits.
	ErrInvalidStation = errors.New("invalid ICAO station")
	// ErrNoReport is returned when the station has no current report.
	ErrNoReport = errors.New("no report available")
)

var icaoRe = regexp.MustCompile(`^[A-Z0-9]{4}$`)

// ClientConfig parameterizes a Client.
type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	BreakerTimeout time.Duration
}

// Client implements domain.ReportFetcher over the AWC METAR endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a report client. Requests are retried with exponential
// backoff and guarded by a circuit breaker that opens after repeated failures.
func NewClient(cfg ClientConfig, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:     logger,
		metrics:    metrics,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "awc",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoReport) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "client", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// FetchReport returns the latest raw report of an ICAO station.
func (c *Client) FetchReport(ctx context.Context, station string) (string, error) {
	station = strings.ToUpper(strings.TrimSpace(station))
	if !icaoRe.MatchString(station) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStation, station)
	}

	params := url.Values{
		"ids":    {station},
		"format": {"raw"},
	}
	u := c.baseURL + "/metar?" + params.Encode()

	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		return c.getWithRetry(ctx, u, station)
	})
	c.metrics.ReportAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.ReportRequests.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("report request for %s: %w", station, err)
	case err != nil:
		c.metrics.ReportRequests.WithLabelValues("error").Inc()
		return "", err
	}
	c.metrics.ReportRequests.WithLabelValues("success").Inc()
	return result.(string), nil
}

func (c *Client) getWithRetry(ctx context.Context, u, station string) (string, error) {
	var lastErr error
	delay := c.retryDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying report request", "station", station, "attempt", attempt, "delay", delay)
			if !sleepWithContext(ctx, delay) {
				return "", ctx.Err()
			}
			delay *= 2
		}

		report, retry, err := c.get(ctx, u, station)
		if err == nil {
			return report, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			return "", err
		}
		c.logger.Warn("report request failed", "station", station, "attempt", attempt, "error", err)
	}
	return "", fmt.Errorf("report request for %s: retries exhausted: %w", station, lastErr)
}

// get performs one request. The boolean result tells whether a failure may be
// retried.
func (c *Client) get(ctx context.Context, u, station string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("report request for %s: %w", station, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return "", false, fmt.Errorf("%w for %s", ErrNoReport, station)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retry, fmt.Errorf("AWC API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	report, err := firstReport(resp.Body, station)
	if err != nil {
		return "", false, err
	}
	c.logger.Debug("report retrieved", "station", station, "report", report)
	return report, false, nil
}

// firstReport returns the first non-empty line that belongs to station.
func firstReport(r io.Reader, station string) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		for len(fields) > 0 && (fields[0] == "METAR" || fields[0] == "SPECI") {
			fields = fields[1:]
		}
		if len(fields) > 0 && fields[0] == station {
			return strings.Join(fields, " "), nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return "", fmt.Errorf("%w for %s", ErrNoReport, station)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
