// Package bulk implements C11: the bulk crawl coordinator that runs a
// multi-date campaign (range or full-range discovery, then per-date
// crawling) with pause/resume/cancel control and persisted progress.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/clock"
	"github.com/mjochum64/law-crawler-service/internal/clock/system"
	idgen "github.com/mjochum64/law-crawler-service/internal/id/uuid"
	"github.com/mjochum64/law-crawler-service/internal/logging"
	"github.com/mjochum64/law-crawler-service/internal/metrics"
	"github.com/mjochum64/law-crawler-service/internal/orchestrator"
	"github.com/mjochum64/law-crawler-service/internal/sitemap"
)

// ErrTooManyOperations is returned by Start when maxConcurrentOperations
// campaigns are already active.
var ErrTooManyOperations = errors.New("bulk: max concurrent operations reached")

// StartRequest configures a new campaign. Full == true runs full-range
// discovery; otherwise Start/End bound a range discovery.
type StartRequest struct {
	Full  bool
	Start time.Time
	End   time.Time

	RateLimitMs            int
	MaxConcurrentDownloads int
	ForceUpdate            bool
}

// Options configures a Coordinator.
type Options struct {
	MaxConcurrentOperations int
	DiscoveryTimeout        time.Duration
	ProgressEveryNDates     int
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentOperations <= 0 {
		o.MaxConcurrentOperations = 3
	}
	if o.DiscoveryTimeout <= 0 {
		o.DiscoveryTimeout = 2 * time.Hour
	}
	if o.ProgressEveryNDates <= 0 {
		o.ProgressEveryNDates = 10
	}
	return o
}

// Coordinator implements C11.
type Coordinator struct {
	store       ProgressStore
	discoverer  *sitemap.Discoverer
	orch        *orchestrator.Orchestrator
	opts        Options
	clock       clock.Clock
	logger      *zap.Logger
	ids         *idgen.Generator

	mu     sync.Mutex
	active map[string]struct{}
}

// New constructs a Coordinator.
func New(store ProgressStore, discoverer *sitemap.Discoverer, orch *orchestrator.Orchestrator, opts Options, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:      store,
		discoverer: discoverer,
		orch:       orch,
		opts:       opts.withDefaults(),
		clock:      system.New(),
		logger:     logging.NopIfNil(logger),
		ids:        idgen.NewGenerator(),
		active:     make(map[string]struct{}),
	}
}

// SetClock overrides the coordinator's clock (tests).
func (c *Coordinator) SetClock(clk clock.Clock) { c.clock = clk }

// Start begins a new campaign and returns its operationId. The campaign
// runs on its own goroutine; Start returns as soon as the record exists.
func (c *Coordinator) Start(ctx context.Context, req StartRequest) (string, error) {
	c.mu.Lock()
	if len(c.active) >= c.opts.MaxConcurrentOperations {
		c.mu.Unlock()
		return "", ErrTooManyOperations
	}
	c.mu.Unlock()

	id, err := c.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate operation id: %w", err)
	}

	now := c.clock.Now()
	progress := Progress{
		OperationID:            id,
		StartDate:              req.Start,
		EndDate:                req.End,
		Status:                 StatusInitializing,
		CreatedAt:              now,
		RateLimitMs:            req.RateLimitMs,
		MaxConcurrentDownloads: req.MaxConcurrentDownloads,
		ForceUpdate:            req.ForceUpdate,
		CurrentPhase:           "initializing",
	}
	if err := c.store.Upsert(ctx, progress); err != nil {
		return "", fmt.Errorf("persist new campaign: %w", err)
	}

	c.mu.Lock()
	c.active[id] = struct{}{}
	metrics.SetActiveCampaigns(len(c.active))
	c.mu.Unlock()

	go c.run(context.Background(), id, req)

	return id, nil
}

func (c *Coordinator) run(ctx context.Context, id string, req StartRequest) {
	defer func() {
		c.mu.Lock()
		delete(c.active, id)
		metrics.SetActiveCampaigns(len(c.active))
		c.mu.Unlock()
	}()

	progress, err := c.store.Get(ctx, id)
	if err != nil {
		c.logger.Error("campaign lost before start", zap.String("operation_id", id), zap.Error(err))
		return
	}

	progress.Status = StatusDiscovering
	progress.StartedAt = c.clock.Now()
	progress.CurrentPhase = "discovering"
	metrics.ObserveCampaignPhase(progress.CurrentPhase)
	c.persist(ctx, &progress)

	discoveryStart := c.clock.Now()
	var result sitemap.DiscoveryResult
	if req.Full {
		result, err = c.discoverer.FullRangeDiscovery(ctx, c.opts.DiscoveryTimeout)
	} else {
		result, err = c.discoverer.RangeDiscovery(ctx, req.Start, req.End, c.opts.DiscoveryTimeout)
	}
	progress.DiscoveryTimeMs = c.clock.Now().Sub(discoveryStart).Milliseconds()
	if err != nil {
		c.fail(ctx, &progress, fmt.Sprintf("discovery failed: %v", err))
		return
	}

	progress.TotalDatesDiscovered = len(result.AvailableDates)
	progress.EstimatedTotalDocuments = len(result.AvailableDates)
	progress.Status = StatusCrawling
	progress.CurrentPhase = "crawling"
	metrics.ObserveCampaignPhase(progress.CurrentPhase)
	c.persist(ctx, &progress)

	downloadStart := c.clock.Now()
	for i, date := range result.AvailableDates {
		if c.observeCancel(ctx, &progress) {
			return
		}
		if c.observePause(ctx, &progress) && c.observeCancel(ctx, &progress) {
			return
		}

		progress.CurrentProcessingDate = date
		summary, err := c.orch.Crawl(ctx, date, req.ForceUpdate)
		if err != nil {
			progress.FailedDates = append(progress.FailedDates, date)
			c.logger.Warn("date crawl failed", zap.Time("date", date), zap.Error(err))
		} else {
			progress.ProcessedDates = append(progress.ProcessedDates, date)
		}
		progress.DocumentsSucceeded += summary.NewDocs + summary.UpdatedDocs
		progress.DocumentsFailed += summary.FailedDocs
		progress.RecomputeCounters()
		progress.RecomputeRate(c.clock.Now())

		if (i+1)%c.opts.ProgressEveryNDates == 0 {
			c.persist(ctx, &progress)
		}

		if c.observeCancel(ctx, &progress) {
			return
		}
		sleepCtx(ctx, req.RateLimitMs)
	}
	progress.DownloadTimeMs = c.clock.Now().Sub(downloadStart).Milliseconds()

	progress.Status = StatusCompleted
	progress.CompletedAt = c.clock.Now()
	progress.CurrentPhase = "completed"
	metrics.ObserveCampaignPhase(progress.CurrentPhase)
	c.persist(ctx, &progress)
}

// observeCancel checks the write-once cancelRequested latch; if set, it
// transitions the campaign to CANCELLED, persists, and returns true.
func (c *Coordinator) observeCancel(ctx context.Context, progress *Progress) bool {
	c.refreshLatches(ctx, progress)
	if !progress.CancelRequested {
		return false
	}
	progress.Status = StatusCancelled
	progress.CompletedAt = c.clock.Now()
	progress.CurrentPhase = "cancelled"
	metrics.ObserveCampaignPhase(progress.CurrentPhase)
	c.persist(ctx, progress)
	return true
}

// observePause checks the write-once pauseRequested latch at an inter-date
// boundary; if set, blocks until resumed or cancelled, then returns true
// so the caller re-checks cancellation before continuing.
func (c *Coordinator) observePause(ctx context.Context, progress *Progress) bool {
	if !progress.PauseRequested {
		return false
	}
	progress.Status = StatusPaused
	progress.PausedAt = c.clock.Now()
	progress.CurrentPhase = "paused"
	metrics.ObserveCampaignPhase(progress.CurrentPhase)
	c.persist(ctx, progress)

	for {
		select {
		case <-ctx.Done():
			return true
		case <-time.After(time.Second):
		}
		latest, err := c.store.Get(ctx, progress.OperationID)
		if err != nil {
			return true
		}
		*progress = latest
		if progress.CancelRequested || progress.Status == StatusResuming {
			if progress.Status == StatusResuming {
				progress.Status = StatusCrawling
				progress.CurrentPhase = "crawling"
				metrics.ObserveCampaignPhase(progress.CurrentPhase)
				c.persist(ctx, progress)
			}
			return true
		}
	}
}

func (c *Coordinator) fail(ctx context.Context, progress *Progress, reason string) {
	progress.Status = StatusFailed
	progress.ErrorMessage = reason
	progress.CompletedAt = c.clock.Now()
	metrics.ObserveCampaignPhase("failed")
	c.persist(ctx, progress)
}

// refreshLatches merges in the pause/cancel latches a controller may have
// set on the persisted record since this campaign last read it, so the
// boundary checks observe them and a persist never clears them.
func (c *Coordinator) refreshLatches(ctx context.Context, progress *Progress) {
	latest, err := c.store.Get(ctx, progress.OperationID)
	if err != nil {
		return
	}
	progress.PauseRequested = progress.PauseRequested || latest.PauseRequested
	progress.CancelRequested = progress.CancelRequested || latest.CancelRequested
}

func (c *Coordinator) persist(ctx context.Context, progress *Progress) {
	c.refreshLatches(ctx, progress)
	if err := c.store.Upsert(ctx, *progress); err != nil {
		c.logger.Error("failed to persist campaign progress", zap.String("operation_id", progress.OperationID), zap.Error(err))
	}
}

// Pause sets the write-once pauseRequested latch. It is a no-op if the
// campaign is already terminal.
func (c *Coordinator) Pause(ctx context.Context, operationID string) error {
	return c.setLatch(ctx, operationID, func(p *Progress) { p.PauseRequested = true })
}

// Resume transitions a PAUSED campaign to RESUMING, unblocking its loop.
func (c *Coordinator) Resume(ctx context.Context, operationID string) error {
	return c.setLatch(ctx, operationID, func(p *Progress) {
		if p.Status != StatusPaused {
			return
		}
		p.PauseRequested = false
		p.Status = StatusResuming
	})
}

// Cancel sets the write-once cancelRequested latch.
func (c *Coordinator) Cancel(ctx context.Context, operationID string) error {
	return c.setLatch(ctx, operationID, func(p *Progress) { p.CancelRequested = true })
}

func (c *Coordinator) setLatch(ctx context.Context, operationID string, mutate func(*Progress)) error {
	progress, err := c.store.Get(ctx, operationID)
	if err != nil {
		return err
	}
	if progress.Status.IsTerminal() {
		return nil
	}
	mutate(&progress)
	return c.store.Upsert(ctx, progress)
}

// Get returns a campaign's current progress.
func (c *Coordinator) Get(ctx context.Context, operationID string) (Progress, error) {
	return c.store.Get(ctx, operationID)
}

// ListActive returns every non-terminal campaign.
func (c *Coordinator) ListActive(ctx context.Context) ([]Progress, error) {
	return c.store.ListActive(ctx)
}

// CleanupOld deletes COMPLETED/CANCELLED campaigns older than days.
func (c *Coordinator) CleanupOld(ctx context.Context, days int) (int, error) {
	old, err := c.store.ListByStatus(ctx, StatusCompleted, StatusCancelled)
	if err != nil {
		return 0, fmt.Errorf("list completed/cancelled campaigns: %w", err)
	}
	cutoff := c.clock.Now().AddDate(0, 0, -days)

	deleted := 0
	for _, p := range old {
		if p.CompletedAt.Before(cutoff) {
			if err := c.store.Delete(ctx, p.OperationID); err != nil {
				return deleted, fmt.Errorf("delete campaign %s: %w", p.OperationID, err)
			}
			deleted++
		}
	}
	return deleted, nil
}

// ReapStuck force-fails any DISCOVERING/CRAWLING campaign whose StartedAt
// is older than the threshold.
func (c *Coordinator) ReapStuck(ctx context.Context, threshold time.Duration) (int, error) {
	running, err := c.store.ListByStatus(ctx, StatusDiscovering, StatusCrawling)
	if err != nil {
		return 0, fmt.Errorf("list running campaigns: %w", err)
	}
	cutoff := c.clock.Now().Add(-threshold)

	reaped := 0
	for _, p := range running {
		if p.StartedAt.Before(cutoff) {
			p.Status = StatusFailed
			p.ErrorMessage = "stuck"
			p.CompletedAt = c.clock.Now()
			if err := c.store.Upsert(ctx, p); err != nil {
				return reaped, fmt.Errorf("reap campaign %s: %w", p.OperationID, err)
			}
			reaped++
		}
	}
	return reaped, nil
}

// RetryEligible reports whether a FAILED campaign may be retried by the
// caller (the coordinator itself never retries automatically).
func RetryEligible(p Progress) bool {
	return p.Status == StatusFailed && p.RetryCount < 3
}

func sleepCtx(ctx context.Context, ms int) {
	if ms <= 0 {
		return
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
