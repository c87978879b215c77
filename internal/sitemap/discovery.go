package sitemap

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mjochum64/law-crawler-service/internal/logging"
	"github.com/mjochum64/law-crawler-service/internal/metrics"
)

// earliestSearchFrom is the lower bound for the full-range earliest-date
// binary search, matching the original implementation's fixed floor.
var earliestSearchFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Discoverer implements C7: range/recent/full-range discovery strategies.
type Discoverer struct {
	fetcher             *Fetcher
	maxConcurrentChecks int
	logger              *zap.Logger
	limiter             *rate.Limiter
}

// NewDiscoverer constructs a Discoverer over fetcher. Every probe, across
// probeBatch's concurrent goroutines, shares one limiter so
// maxConcurrentChecks controls fan-out while rateLimitMs still bounds the
// portal's overall request rate.
func NewDiscoverer(fetcher *Fetcher, maxConcurrentChecks, rateLimitMs int, logger *zap.Logger) *Discoverer {
	if maxConcurrentChecks <= 0 {
		maxConcurrentChecks = 1
	}
	return &Discoverer{
		fetcher:             fetcher,
		maxConcurrentChecks: maxConcurrentChecks,
		logger:              logging.NopIfNil(logger),
		limiter:             ratePacer(rateLimitMs),
	}
}

// ratePacer builds a single-token limiter pacing calls ms apart; ms<=0
// disables pacing entirely.
func ratePacer(ms int) *rate.Limiter {
	if ms <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(ms)*time.Millisecond), 1)
}

// RangeDiscovery answers "which dates in [start, end] have sitemaps?" by
// batching exists() probes maxConcurrentChecks at a time, bounded by
// timeout.
func (d *Discoverer) RangeDiscovery(ctx context.Context, start, end time.Time, timeout time.Duration) (DiscoveryResult, error) {
	begin := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dates := datesBetween(start, end)
	result := DiscoveryResult{TotalChecked: 0}

	for batchStart := 0; batchStart < len(dates); batchStart += d.maxConcurrentChecks {
		batchEnd := batchStart + d.maxConcurrentChecks
		if batchEnd > len(dates) {
			batchEnd = len(dates)
		}
		batch := dates[batchStart:batchEnd]

		available, failed := d.probeBatch(ctx, batch)
		result.AvailableDates = append(result.AvailableDates, available...)
		result.FailedDates = append(result.FailedDates, failed...)
		result.TotalChecked += len(batch)

		if ctx.Err() != nil {
			break // discovery timeout: return the partial result, not fatal (spec §7)
		}
	}

	sortDates(result.AvailableDates)
	sortDates(result.FailedDates)
	result.Duration = time.Since(begin)
	metrics.ObserveDiscovery("range", result.Duration)
	return result, nil
}

func (d *Discoverer) probeBatch(ctx context.Context, batch []time.Time) (available, failed []time.Time) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, date := range batch {
		wg.Add(1)
		go func(date time.Time) {
			defer wg.Done()
			if werr := d.limiter.Wait(ctx); werr != nil {
				mu.Lock()
				failed = append(failed, date)
				mu.Unlock()
				return
			}
			ok, err := d.fetcher.Exists(ctx, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || !ok {
				failed = append(failed, date)
				return
			}
			available = append(available, date)
		}(date)
	}
	wg.Wait()
	return available, failed
}

// RecentDiscovery samples up to 10 dates biased toward the most recent n
// days and checks ExistsWithContent; if nothing hits and allowFallback is
// set, it falls back to a full RangeDiscovery over the last n days.
func (d *Discoverer) RecentDiscovery(ctx context.Context, n int, allowFallback bool, timeout time.Duration) (DiscoveryResult, error) {
	begin := time.Now()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -n)

	samples := sampleRecentDates(start, today, 10)

	var available, failed []time.Time
	for _, date := range samples {
		if err := d.limiter.Wait(ctx); err != nil {
			failed = append(failed, date)
			continue
		}
		ok, err := d.fetcher.ExistsWithContent(ctx, date)
		if err == nil && ok {
			available = append(available, date)
		} else {
			failed = append(failed, date)
		}
	}

	if len(available) == 0 && allowFallback {
		d.logger.Debug("recent discovery sampling found nothing; falling back to full range scan",
			zap.Int("days_back", n))
		return d.RangeDiscovery(ctx, start, today, timeout)
	}

	sortDates(available)
	sortDates(failed)
	duration := time.Since(begin)
	metrics.ObserveDiscovery("recent", duration)
	return DiscoveryResult{
		AvailableDates: available,
		FailedDates:    failed,
		Duration:       duration,
		TotalChecked:   len(samples),
	}, nil
}

// FullRangeDiscovery finds the earliest available date by binary search
// from earliestSearchFrom forward, the latest by scanning back from
// yesterday up to 30 days, then delegates to RangeDiscovery between them.
func (d *Discoverer) FullRangeDiscovery(ctx context.Context, timeout time.Duration) (DiscoveryResult, error) {
	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)

	earliest, err := d.findEarliest(ctx, earliestSearchFrom, yesterday)
	if err != nil {
		return DiscoveryResult{}, fmt.Errorf("find earliest date: %w", err)
	}

	latest, err := d.findLatest(ctx, yesterday, 30)
	if err != nil {
		return DiscoveryResult{}, fmt.Errorf("find latest date: %w", err)
	}

	return d.RangeDiscovery(ctx, earliest, latest, timeout)
}

// findEarliest binary-searches [from, to] for the earliest date where
// ExistsWithContent is true, assuming availability is monotonic across the
// search window.
func (d *Discoverer) findEarliest(ctx context.Context, from, to time.Time) (time.Time, error) {
	lo, hi := from, to
	best := to

	for !lo.After(hi) {
		mid := midDate(lo, hi)
		if err := d.limiter.Wait(ctx); err != nil {
			return time.Time{}, err
		}
		ok, err := d.fetcher.ExistsWithContent(ctx, mid)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			best = mid
			hi = mid.AddDate(0, 0, -1)
		} else {
			lo = mid.AddDate(0, 0, 1)
		}
	}
	return best, nil
}

// findLatest scans backward from start for up to maxDaysBack days for the
// first date where content exists.
func (d *Discoverer) findLatest(ctx context.Context, start time.Time, maxDaysBack int) (time.Time, error) {
	for i := 0; i < maxDaysBack; i++ {
		date := start.AddDate(0, 0, -i)
		if err := d.limiter.Wait(ctx); err != nil {
			return time.Time{}, err
		}
		ok, err := d.fetcher.ExistsWithContent(ctx, date)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return date, nil
		}
	}
	return start, nil
}

func datesBetween(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// sampleRecentDates biases sampling toward the most recent days: it always
// includes the most recent `limit` days if the range is that short,
// otherwise it takes the most recent half of the budget from the tail of
// the range and spreads the rest evenly across the remainder — on equal
// evidence this naturally prefers more recent dates (spec §4.7 tie-break).
func sampleRecentDates(start, end time.Time, limit int) []time.Time {
	all := datesBetween(start, end)
	if len(all) <= limit {
		return all
	}

	recentCount := limit / 2
	if recentCount == 0 {
		recentCount = 1
	}
	recent := all[len(all)-recentCount:]

	remaining := limit - len(recent)
	rest := all[:len(all)-recentCount]
	spread := make([]time.Time, 0, remaining)
	if remaining > 0 && len(rest) > 0 {
		step := len(rest) / remaining
		if step == 0 {
			step = 1
		}
		for i := 0; i < len(rest) && len(spread) < remaining; i += step {
			spread = append(spread, rest[i])
		}
	}

	out := append(spread, recent...)
	sortDates(out)
	return out
}

func midDate(a, b time.Time) time.Time {
	days := int(b.Sub(a).Hours() / 24)
	return a.AddDate(0, 0, days/2)
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
