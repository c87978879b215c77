// Package orchestrator implements C10: crawl a single date's sitemaps into
// documents via the downloader, and sweep FAILED documents for retry.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/clock"
	"github.com/mjochum64/law-crawler-service/internal/clock/system"
	"github.com/mjochum64/law-crawler-service/internal/downloader"
	"github.com/mjochum64/law-crawler-service/internal/logging"
	"github.com/mjochum64/law-crawler-service/internal/metrics"
	"github.com/mjochum64/law-crawler-service/internal/sitemap"
	"github.com/mjochum64/law-crawler-service/internal/store"
)

// prefixToCourt maps a documentId's leading token to its issuing court
// (spec §4.10). Unknown prefixes map to UNKNOWN.
var prefixToCourt = map[string]string{
	"KARE": "BAG",
	"KORE": "BGH",
	"KSRE": "BSG",
	"WBRE": "BVerwG",
}

// CourtForDocumentID derives the court tag from a documentId's prefix.
func CourtForDocumentID(documentID string) string {
	for prefix, court := range prefixToCourt {
		if strings.HasPrefix(documentID, prefix) {
			return court
		}
	}
	return "UNKNOWN"
}

// CrawlSummary tallies a single date's outcome.
type CrawlSummary struct {
	NewDocs     int
	UpdatedDocs int
	FailedDocs  int
}

// Orchestrator implements C10.
type Orchestrator struct {
	fetcher    *sitemap.Fetcher
	repo       store.Repository
	downloader *downloader.Downloader
	retryPol   downloader.RetryPolicy
	clock      clock.Clock
	logger     *zap.Logger
}

// New constructs an Orchestrator.
func New(fetcher *sitemap.Fetcher, repo store.Repository, dl *downloader.Downloader, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		repo:       repo,
		downloader: dl,
		retryPol:   downloader.DefaultRetryPolicy(),
		clock:      system.New(),
		logger:     logging.NopIfNil(logger),
	}
}

// SetClock overrides the orchestrator's clock (tests).
func (o *Orchestrator) SetClock(c clock.Clock) { o.clock = c }

// Crawl runs C10 for date: fetch its sitemaps, and for each entry either
// skip (already downloaded, no forceUpdate), or create/refresh and hand
// off to the downloader.
func (o *Orchestrator) Crawl(ctx context.Context, date time.Time, forceUpdate bool) (CrawlSummary, error) {
	var summary CrawlSummary

	leafURLs, err := o.fetcher.FetchIndex(ctx, date)
	if err != nil {
		return summary, fmt.Errorf("fetch sitemap index for %s: %w", date.Format("2006-01-02"), err)
	}

	for _, leafURL := range leafURLs {
		entries, err := o.fetcher.FetchLeaf(ctx, leafURL)
		if err != nil {
			o.logger.Warn("failed to fetch leaf sitemap", zap.String("leaf_url", leafURL), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			o.processEntry(ctx, entry, forceUpdate, &summary)
		}
	}

	return summary, nil
}

func (o *Orchestrator) processEntry(ctx context.Context, entry sitemap.Entry, forceUpdate bool, summary *CrawlSummary) {
	existing, found, err := o.repo.FindByDocumentID(ctx, entry.DocumentID)
	if err != nil {
		o.logger.Error("store lookup failed", zap.String("document_id", entry.DocumentID), zap.Error(err))
		summary.FailedDocs++
		return
	}

	alreadyDone := found && (existing.Status == store.StatusDownloaded || existing.Status == store.StatusProcessed)
	if alreadyDone && !forceUpdate {
		return
	}

	doc := existing
	isNew := !found
	if isNew {
		doc = store.LegalDocument{
			DocumentID:   entry.DocumentID,
			Court:        CourtForDocumentID(entry.DocumentID),
			SourceURL:    entry.URL,
			DecisionDate: o.clock.Now(),
			Status:       store.StatusPending,
		}
	}
	doc.SourceURL = entry.URL

	if err := o.repo.Upsert(ctx, doc); err != nil {
		o.logger.Error("upsert before download failed", zap.String("document_id", entry.DocumentID), zap.Error(err))
		summary.FailedDocs++
		return
	}

	result := o.downloader.Download(ctx, doc)
	switch {
	case !result.Success:
		summary.FailedDocs++
	case isNew:
		summary.NewDocs++
	default:
		summary.UpdatedDocs++
	}
}

// RetryFailed picks up FAILED documents older than olderThan, resets them
// to PENDING, and re-invokes the downloader. Returns the number of
// documents that succeeded on retry.
func (o *Orchestrator) RetryFailed(ctx context.Context, olderThan time.Time) (int, error) {
	failed, err := o.repo.FindFailedForRetry(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("find failed documents: %w", err)
	}

	succeeded := 0
	for _, doc := range failed {
		if !o.retryPol.Eligible(doc, o.clock.Now()) {
			continue
		}
		doc.Status = store.StatusPending
		if err := o.repo.Upsert(ctx, doc); err != nil {
			o.logger.Error("reset to PENDING failed", zap.String("document_id", doc.DocumentID), zap.Error(err))
			continue
		}
		if result := o.downloader.Download(ctx, doc); result.Success {
			succeeded++
		}
	}
	metrics.ObserveRetrySweep(succeeded)
	return succeeded, nil
}
