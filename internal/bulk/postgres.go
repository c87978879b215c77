package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the narrow slice of *pgxpool.Pool this package needs, satisfied by
// both the real pool and pgxmock's mock pool in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PostgresStore persists Progress records in a `bulk_crawl_progress` table.
// Grounded on the teacher's progress_store.go upsert/get/list shape.
type PostgresStore struct {
	pool db
}

// NewPostgresStore wraps pool. pool is typically a *pgxpool.Pool in
// production and a pgxmock mock in tests.
func NewPostgresStore(pool db) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const upsertSQL = `
INSERT INTO bulk_crawl_progress (
	operation_id, start_date, end_date, status,
	total_dates_discovered, dates_processed, documents_succeeded, documents_failed,
	estimated_total_documents, processing_rate_docs_per_minute, estimated_completion_time_ms,
	created_at, started_at, paused_at, completed_at, discovery_time_ms, download_time_ms,
	pause_requested, cancel_requested,
	rate_limit_ms, max_concurrent_downloads, force_update,
	current_phase, current_processing_date, retry_count,
	processed_dates, failed_dates, error_message
) VALUES (
	$1, $2, $3, $4,
	$5, $6, $7, $8,
	$9, $10, $11,
	$12, $13, $14, $15, $16, $17,
	$18, $19,
	$20, $21, $22,
	$23, $24, $25,
	$26, $27, $28
)
ON CONFLICT (operation_id) DO UPDATE SET
	start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, status = EXCLUDED.status,
	total_dates_discovered = EXCLUDED.total_dates_discovered, dates_processed = EXCLUDED.dates_processed,
	documents_succeeded = EXCLUDED.documents_succeeded, documents_failed = EXCLUDED.documents_failed,
	estimated_total_documents = EXCLUDED.estimated_total_documents,
	processing_rate_docs_per_minute = EXCLUDED.processing_rate_docs_per_minute,
	estimated_completion_time_ms = EXCLUDED.estimated_completion_time_ms,
	started_at = EXCLUDED.started_at, paused_at = EXCLUDED.paused_at, completed_at = EXCLUDED.completed_at,
	discovery_time_ms = EXCLUDED.discovery_time_ms, download_time_ms = EXCLUDED.download_time_ms,
	pause_requested = EXCLUDED.pause_requested, cancel_requested = EXCLUDED.cancel_requested,
	rate_limit_ms = EXCLUDED.rate_limit_ms, max_concurrent_downloads = EXCLUDED.max_concurrent_downloads,
	force_update = EXCLUDED.force_update,
	current_phase = EXCLUDED.current_phase, current_processing_date = EXCLUDED.current_processing_date,
	retry_count = EXCLUDED.retry_count,
	processed_dates = EXCLUDED.processed_dates, failed_dates = EXCLUDED.failed_dates,
	error_message = EXCLUDED.error_message
`

func (s *PostgresStore) Upsert(ctx context.Context, p Progress) error {
	processedJSON, err := json.Marshal(p.ProcessedDates)
	if err != nil {
		return fmt.Errorf("marshal processed dates: %w", err)
	}
	failedJSON, err := json.Marshal(p.FailedDates)
	if err != nil {
		return fmt.Errorf("marshal failed dates: %w", err)
	}

	_, err = s.pool.Exec(ctx, upsertSQL,
		p.OperationID, p.StartDate, p.EndDate, string(p.Status),
		p.TotalDatesDiscovered, p.DatesProcessed, p.DocumentsSucceeded, p.DocumentsFailed,
		p.EstimatedTotalDocuments, p.ProcessingRateDocsPerMinute, p.EstimatedCompletionTimeMs,
		p.CreatedAt, p.StartedAt, p.PausedAt, p.CompletedAt, p.DiscoveryTimeMs, p.DownloadTimeMs,
		p.PauseRequested, p.CancelRequested,
		p.RateLimitMs, p.MaxConcurrentDownloads, p.ForceUpdate,
		p.CurrentPhase, p.CurrentProcessingDate, p.RetryCount,
		processedJSON, failedJSON, p.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("upsert bulk_crawl_progress: %w", err)
	}
	return nil
}

const selectColumns = `
	operation_id, start_date, end_date, status,
	total_dates_discovered, dates_processed, documents_succeeded, documents_failed,
	estimated_total_documents, processing_rate_docs_per_minute, estimated_completion_time_ms,
	created_at, started_at, paused_at, completed_at, discovery_time_ms, download_time_ms,
	pause_requested, cancel_requested,
	rate_limit_ms, max_concurrent_downloads, force_update,
	current_phase, current_processing_date, retry_count,
	processed_dates, failed_dates, error_message
`

func (s *PostgresStore) Get(ctx context.Context, operationID string) (Progress, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM bulk_crawl_progress WHERE operation_id = $1", operationID)
	p, err := scanProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Progress{}, ErrNotFound
	}
	if err != nil {
		return Progress{}, fmt.Errorf("get bulk_crawl_progress: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]Progress, error) {
	return s.ListByStatus(ctx, StatusInitializing, StatusDiscovering, StatusCrawling, StatusPaused, StatusResuming)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...Status) ([]Progress, error) {
	strs := make([]string, len(statuses))
	for i, st := range statuses {
		strs[i] = string(st)
	}
	rows, err := s.pool.Query(ctx, "SELECT "+selectColumns+" FROM bulk_crawl_progress WHERE status = ANY($1)", strs)
	if err != nil {
		return nil, fmt.Errorf("list bulk_crawl_progress: %w", err)
	}
	defer rows.Close()

	var out []Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bulk_crawl_progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, operationID string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM bulk_crawl_progress WHERE operation_id = $1", operationID)
	if err != nil {
		return fmt.Errorf("delete bulk_crawl_progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(row rowScanner) (Progress, error) {
	var p Progress
	var status string
	var processedJSON, failedJSON []byte

	err := row.Scan(
		&p.OperationID, &p.StartDate, &p.EndDate, &status,
		&p.TotalDatesDiscovered, &p.DatesProcessed, &p.DocumentsSucceeded, &p.DocumentsFailed,
		&p.EstimatedTotalDocuments, &p.ProcessingRateDocsPerMinute, &p.EstimatedCompletionTimeMs,
		&p.CreatedAt, &p.StartedAt, &p.PausedAt, &p.CompletedAt, &p.DiscoveryTimeMs, &p.DownloadTimeMs,
		&p.PauseRequested, &p.CancelRequested,
		&p.RateLimitMs, &p.MaxConcurrentDownloads, &p.ForceUpdate,
		&p.CurrentPhase, &p.CurrentProcessingDate, &p.RetryCount,
		&processedJSON, &failedJSON, &p.ErrorMessage,
	)
	if err != nil {
		return Progress{}, err
	}
	p.Status = Status(status)

	if len(processedJSON) > 0 {
		if err := json.Unmarshal(processedJSON, &p.ProcessedDates); err != nil {
			return Progress{}, fmt.Errorf("unmarshal processed dates: %w", err)
		}
	}
	if len(failedJSON) > 0 {
		if err := json.Unmarshal(failedJSON, &p.FailedDates); err != nil {
			return Progress{}, fmt.Errorf("unmarshal failed dates: %w", err)
		}
	}
	return p, nil
}

var _ ProgressStore = (*PostgresStore)(nil)
