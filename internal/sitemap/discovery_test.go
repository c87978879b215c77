package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRangeDiscovery_ProbesExactlyNDates is testable property 7.
func TestRangeDiscovery_ProbesExactlyNDates(t *testing.T) {
	t.Parallel()
	var probeCount atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probeCount.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	d := NewDiscoverer(f, 4, 0, nil)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)

	result, err := d.RangeDiscovery(context.Background(), start, end, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 7, probeCount.Load())
	require.Len(t, result.AvailableDates, 7)
	require.Empty(t, result.FailedDates)
}

func TestRangeDiscovery_SplitsAvailableAndFailed(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseIndexDate(r.URL.Path)
		if ok && date.Day()%2 == 0 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	d := NewDiscoverer(f, 2, 0, nil)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	result, err := d.RangeDiscovery(context.Background(), start, end, time.Minute)
	require.NoError(t, err)
	require.Len(t, result.AvailableDates, 2)
	require.Len(t, result.FailedDates, 2)
}

func TestFullRangeDiscovery_FindsEarliestByBinarySearch(t *testing.T) {
	t.Parallel()
	cutover := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseIndexDate(r.URL.Path)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if date.Before(cutover) {
			_, _ = w.Write([]byte(`<sitemapindex></sitemapindex>`))
			return
		}
		_, _ = w.Write([]byte(`<sitemapindex><sitemap><loc>x</loc></sitemap></sitemapindex>`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	d := NewDiscoverer(f, 4, 0, nil)

	earliest, err := d.findEarliest(context.Background(), earliestSearchFrom, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, cutover, earliest)
}

func parseIndexDate(path string) (time.Time, bool) {
	var y, m, dd int
	_, err := fmt.Sscanf(path, "/jportal/docs/eclicrawler/%d/%d/%d/sitemap_index_1.xml", &y, &m, &dd)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), dd, 0, 0, 0, 0, time.UTC), true
}

func TestSampleRecentDates_PrefersRecentOnTie(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	samples := sampleRecentDates(start, end, 10)
	require.LessOrEqual(t, len(samples), 10)
	require.Contains(t, samples, end)
}
