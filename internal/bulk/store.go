package bulk

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an operationId has no persisted record.
var ErrNotFound = errors.New("bulk: operation not found")

// ProgressStore persists BulkCrawlProgress records, keyed by OperationID.
type ProgressStore interface {
	Upsert(ctx context.Context, p Progress) error
	Get(ctx context.Context, operationID string) (Progress, error)
	ListActive(ctx context.Context) ([]Progress, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]Progress, error)
	Delete(ctx context.Context, operationID string) error
}
