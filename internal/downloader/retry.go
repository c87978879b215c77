package downloader

import (
	"time"

	"github.com/mjochum64/law-crawler-service/internal/store"
)

// RetryPolicy decides whether a FAILED document is eligible for a retry
// attempt, per spec §4.10's "older than one hour" cooldown window.
type RetryPolicy struct {
	Cooldown time.Duration
}

// DefaultRetryPolicy is the spec's one-hour cooldown.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Cooldown: time.Hour}
}

// Eligible reports whether doc may be retried as of now.
func (p RetryPolicy) Eligible(doc store.LegalDocument, now time.Time) bool {
	if doc.Status != store.StatusFailed {
		return false
	}
	return now.Sub(doc.CrawledAt) >= p.Cooldown
}
