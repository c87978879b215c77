package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by mutation methods that require an existing
// record; read methods instead return a zero value and a false/nil result.
var ErrNotFound = errors.New("store: document not found")

// Repository is the single contract satisfied by every Document Store
// backend (spec §4.8). Implementations must make upsert/findByDocumentId
// read-your-writes consistent.
type Repository interface {
	Upsert(ctx context.Context, doc LegalDocument) error
	FindByDocumentID(ctx context.Context, id string) (LegalDocument, bool, error)
	ExistsBySourceURL(ctx context.Context, url string) (bool, error)

	FindByCourt(ctx context.Context, court string, page Page) ([]LegalDocument, error)
	FindByStatus(ctx context.Context, status Status, page Page) ([]LegalDocument, error)
	FindByDateRange(ctx context.Context, from, to time.Time, page Page) ([]LegalDocument, error)
	FindByECLI(ctx context.Context, ecli string) (LegalDocument, bool, error)
	FindByCrawledAfter(ctx context.Context, t time.Time, page Page) ([]LegalDocument, error)
	FindRecent(ctx context.Context, page Page) ([]LegalDocument, error)
	SearchText(ctx context.Context, term string, page Page) ([]LegalDocument, error)

	CountByCourt(ctx context.Context, court string) (int, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
	Count(ctx context.Context) (int, error)

	FindFailedForRetry(ctx context.Context, olderThan time.Time) ([]LegalDocument, error)

	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

var (
	_ Repository = (*ArchiveStore)(nil)
	_ Repository = (*SearchStore)(nil)
	_ Repository = (*DualStore)(nil)
)
