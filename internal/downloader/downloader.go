// Package downloader implements C9: fetch a document's body, validate and
// extract it, and persist the result through the document store.
package downloader

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mjochum64/law-crawler-service/internal/clock"
	"github.com/mjochum64/law-crawler-service/internal/clock/system"
	"github.com/mjochum64/law-crawler-service/internal/extract"
	contenthash "github.com/mjochum64/law-crawler-service/internal/hash/sha256"
	"github.com/mjochum64/law-crawler-service/internal/logging"
	"github.com/mjochum64/law-crawler-service/internal/metrics"
	"github.com/mjochum64/law-crawler-service/internal/store"
	"github.com/mjochum64/law-crawler-service/internal/validation"
)

// ValidationMode selects whether validation gates the download outcome
// (strict) or is attached best-effort after the fact (async).
type ValidationMode string

const (
	ValidationStrict ValidationMode = "strict"
	ValidationAsync  ValidationMode = "async"
)

// Options configures a Downloader.
type Options struct {
	UserAgent      string
	RateLimitMs    int
	ValidationMode ValidationMode
	ValidationOpts validation.Options
	// DualBackend, when true, also writes the raw body to the archive
	// path even when repo is a search-only or dual store; archive.go's
	// WriteBody is invoked directly since Repository.Upsert alone never
	// touches the filesystem.
	DualBackend bool
}

// Result is the outcome of a single download attempt (spec §4.9).
type Result struct {
	Document   store.LegalDocument
	XMLContent []byte
	FilePath   string
	Validation validation.Report
	Success    bool
	Err        error
}

// Downloader implements C9.
type Downloader struct {
	client  *http.Client
	repo    store.Repository
	archive *store.ArchiveStore // optional: set in archive and dual storage modes
	clock   clock.Clock
	opts    Options
	logger  *zap.Logger
	locks   keyedMutex
	limiter *rate.Limiter
	hasher  *contenthash.Hasher
}

// New constructs a Downloader. archive may be nil when the backing repo is
// not a dual/archive store (no raw-body write happens in that case).
func New(client *http.Client, repo store.Repository, archive *store.ArchiveStore, opts Options, logger *zap.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{
		client:  client,
		repo:    repo,
		archive: archive,
		clock:   system.New(),
		opts:    opts,
		logger:  logging.NopIfNil(logger),
		limiter: rateLimiter(opts.RateLimitMs),
		hasher:  contenthash.New(),
	}
}

// rateLimiter builds a single-token limiter pacing calls ms apart; ms<=0
// disables pacing entirely.
func rateLimiter(ms int) *rate.Limiter {
	if ms <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(ms)*time.Millisecond), 1)
}

// SetClock overrides the Downloader's clock; tests use this to inject a
// fake clock for deterministic CrawledAt assertions.
func (d *Downloader) SetClock(c clock.Clock) {
	d.clock = c
}

// Download runs the fetch→validate→extract→persist pipeline for doc,
// serialized per documentId via the keyed mutex so retries and concurrent
// re-crawls of the same document never race each other's writes.
func (d *Downloader) Download(ctx context.Context, doc store.LegalDocument) (result Result) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if !result.Success {
			outcome = "failed"
		}
		metrics.ObserveDownload(outcome, time.Since(start))
		metrics.ObserveDocument(result.Document.Court, string(result.Document.Status))
	}()

	unlock := d.locks.lock(doc.DocumentID)
	defer unlock()

	if err := d.limiter.Wait(ctx); err != nil {
		return d.fail(doc, fmt.Errorf("rate limiter: %w", err))
	}

	rawURL := normalizeURL(doc.SourceURL)
	body, err := d.fetch(ctx, rawURL)
	if err != nil {
		return d.fail(doc, fmt.Errorf("fetch %s: %w", rawURL, err))
	}

	hash, hashErr := d.hasher.Hash(body)
	if hashErr != nil {
		return d.fail(doc, fmt.Errorf("hash body %s: %w", doc.DocumentID, hashErr))
	}
	unchanged := doc.ContentHash != "" && doc.ContentHash == hash &&
		(doc.Status == store.StatusDownloaded || doc.Status == store.StatusProcessed)

	var report validation.Report
	if unchanged {
		d.logger.Debug("body unchanged on re-crawl, skipping re-extraction", zap.String("document_id", doc.DocumentID))
		report.Valid = doc.Status == store.StatusProcessed
	} else {
		report = validation.Validate(body, d.opts.ValidationOpts)
		if d.opts.ValidationMode == ValidationStrict && !report.Valid {
			return d.fail(doc, fmt.Errorf("strict validation failed for %s: %v", doc.DocumentID, report.Errors))
		}

		extracted := extract.Extract(body)
		applyExtracted(&doc, extracted)
		if len(report.ECLIIdentifiers) > 0 {
			doc.ECLI = report.ECLIIdentifiers[0]
		}

		doc.ContentHash = hash
		doc.Status = store.StatusDownloaded
		if report.Valid {
			doc.Status = store.StatusProcessed
		}
	}
	doc.CrawledAt = d.clock.Now()

	var filePath string
	if d.opts.DualBackend && d.archive != nil {
		filePath, err = d.archive.WriteBody(doc, body)
		if err != nil {
			return d.fail(doc, fmt.Errorf("archive write %s: %w", doc.DocumentID, err))
		}
		doc.FilePath = filePath
	}

	if err := d.repo.Upsert(ctx, doc); err != nil {
		return d.fail(doc, fmt.Errorf("store upsert %s: %w", doc.DocumentID, err))
	}

	return Result{Document: doc, XMLContent: body, FilePath: filePath, Validation: report, Success: true}
}

func (d *Downloader) fail(doc store.LegalDocument, err error) Result {
	doc.Status = store.StatusFailed
	doc.CrawledAt = d.clock.Now()
	if upsertErr := d.repo.Upsert(context.Background(), doc); upsertErr != nil {
		d.logger.Error("failed to persist FAILED status", zap.String("document_id", doc.DocumentID), zap.Error(upsertErr))
	}
	d.logger.Debug("download failed", zap.String("document_id", doc.DocumentID), zap.Error(err))
	return Result{Document: doc, Success: false, Err: err}
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	reader := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, gerr := gzip.NewReader(resp.Body)
		if gerr != nil {
			return nil, fmt.Errorf("gunzip response: %w", gerr)
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

func applyExtracted(doc *store.LegalDocument, e extract.ExtractedContent) {
	if e.Title != "" {
		doc.Title = e.Title
	}
	if e.Court != "" && e.Court != "UNKNOWN" {
		doc.Court = e.Court
	}
	if e.DecisionDate != nil {
		doc.DecisionDate = *e.DecisionDate
	}
	if e.CaseNumber != "" {
		doc.CaseNumber = e.CaseNumber
	}
	if e.ECLI != "" {
		doc.ECLI = e.ECLI
	}
	if e.DocumentType != "" {
		doc.DocumentType = e.DocumentType
	}
	if e.Norms != "" {
		doc.Norms = e.Norms
	}
	if e.Subject != "" {
		doc.Subject = e.Subject
	}
	if e.Leitsatz != "" {
		doc.Leitsatz = e.Leitsatz
	}
	if e.Tenor != "" {
		doc.Tenor = e.Tenor
	}
	if e.Gruende != "" {
		doc.Gruende = e.Gruende
	}
	if e.FullText != "" {
		doc.FullText = e.FullText
	}
}

func normalizeURL(raw string) string {
	return strings.TrimSpace(strings.NewReplacer("\n", "", "\r", "").Replace(raw))
}
