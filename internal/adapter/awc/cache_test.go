package awc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/miz-weather/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedFetcher_HitAndMiss(t *testing.T) {
	inner := &mockFetcher{reports: map[string]string{"UGTB": "UGTB 240830Z CAVOK"}}
	m := observability.NewMetricsForTesting()
	c := NewCachedFetcher(inner, 4, time.Minute, clockwork.NewFakeClock(), m)

	for range 3 {
		report, err := c.FetchReport(context.Background(), "ugtb")
		require.NoError(t, err)
		assert.Equal(t, "UGTB 240830Z CAVOK", report)
	}

	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReportCache.WithLabelValues("miss")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ReportCache.WithLabelValues("hit")), 0)
}

func TestCachedFetcher_Expiry(t *testing.T) {
	inner := &mockFetcher{reports: map[string]string{"UGTB": "UGTB 240830Z CAVOK"}}
	clk := clockwork.NewFakeClock()
	c := NewCachedFetcher(inner, 4, time.Minute, clk, observability.NewMetricsForTesting())

	_, err := c.FetchReport(context.Background(), "UGTB")
	require.NoError(t, err)

	clk.Advance(59 * time.Second)
	_, err = c.FetchReport(context.Background(), "UGTB")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	clk.Advance(time.Second)
	_, err = c.FetchReport(context.Background(), "UGTB")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_ErrorsAreNotCached(t *testing.T) {
	inner := &mockFetcher{err: ErrNoReport}
	c := NewCachedFetcher(inner, 4, time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	for range 2 {
		_, err := c.FetchReport(context.Background(), "UGTB")
		require.ErrorIs(t, err, ErrNoReport)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, c.cache.len())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2024, 5, 24, 8, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	c := newLRUCache(2)

	c.put("UGTB", "a", later)
	c.put("UGKO", "b", later)
	_, ok := c.get("UGTB", now)
	require.True(t, ok)

	c.put("UGSB", "c", later)
	assert.Equal(t, 2, c.len())

	_, ok = c.get("UGKO", now)
	assert.False(t, ok, "least recently used entry should be evicted")
	v, ok := c.get("UGTB", now)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	v, ok = c.get("UGSB", now)
	assert.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	now := time.Date(2024, 5, 24, 8, 0, 0, 0, time.UTC)
	c := newLRUCache(2)
	c.put("UGTB", "old", now.Add(time.Minute))
	c.put("UGTB", "new", now.Add(time.Hour))

	assert.Equal(t, 1, c.len())
	v, ok := c.get("UGTB", now.Add(30*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, "new", v)
}

// --- mocks ---

type mockFetcher struct {
	reports map[string]string
	err     error
	calls   int
}

func (m *mockFetcher) FetchReport(_ context.Context, station string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	r, ok := m.reports[station]
	if !ok {
		return "", errors.New("unknown station")
	}
	return r, nil
}
