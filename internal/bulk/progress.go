// Package bulk implements C11: the bulk crawl coordinator and its
// persisted campaign state.
package bulk

import "time"

// Status is a campaign's lifecycle state (spec §3).
type Status string

const (
	StatusInitializing Status = "INITIALIZING"
	StatusDiscovering  Status = "DISCOVERING"
	StatusCrawling     Status = "CRAWLING"
	StatusPaused       Status = "PAUSED"
	StatusResuming     Status = "RESUMING"
	StatusCompleted    Status = "COMPLETED"
	StatusFailed       Status = "FAILED"
	StatusCancelled    Status = "CANCELLED"
)

// IsTerminal reports whether s is one of the sticky terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Progress is BulkCrawlProgress (spec §3): the persisted state of one bulk
// crawl campaign.
type Progress struct {
	OperationID string

	StartDate time.Time
	EndDate   time.Time
	Status    Status

	TotalDatesDiscovered       int
	DatesProcessed             int
	DocumentsSucceeded         int
	DocumentsFailed            int
	EstimatedTotalDocuments    int
	ProcessingRateDocsPerMinute float64
	EstimatedCompletionTimeMs   int64

	CreatedAt       time.Time
	StartedAt       time.Time
	PausedAt        time.Time
	CompletedAt     time.Time
	DiscoveryTimeMs int64
	DownloadTimeMs  int64

	PauseRequested  bool
	CancelRequested bool

	RateLimitMs            int
	MaxConcurrentDownloads int
	ForceUpdate            bool

	CurrentPhase          string
	CurrentProcessingDate time.Time
	RetryCount            int

	ProcessedDates []time.Time
	FailedDates    []time.Time

	ErrorMessage string
}

// RecomputeCounters keeps DatesProcessed in sync with the two date lists,
// enforcing spec §3's invariant.
func (p *Progress) RecomputeCounters() {
	p.DatesProcessed = len(p.ProcessedDates) + len(p.FailedDates)
}

// RecomputeRate updates the rate/ETA fields from elapsed wall time and
// documents processed so far, per spec §4.11.
func (p *Progress) RecomputeRate(now time.Time) {
	if p.StartedAt.IsZero() {
		return
	}
	minutes := now.Sub(p.StartedAt).Minutes()
	if minutes <= 0 {
		return
	}
	processed := p.DocumentsSucceeded + p.DocumentsFailed
	p.ProcessingRateDocsPerMinute = float64(processed) / minutes
	if p.ProcessingRateDocsPerMinute <= 0 || p.EstimatedTotalDocuments <= processed {
		return
	}
	remaining := float64(p.EstimatedTotalDocuments - processed)
	etaMinutes := remaining / p.ProcessingRateDocsPerMinute
	p.EstimatedCompletionTimeMs = now.Add(time.Duration(etaMinutes * float64(time.Minute))).UnixMilli()
}
