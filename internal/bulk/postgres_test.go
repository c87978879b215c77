package bulk

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_UpsertExecutesInsert(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO bulk_crawl_progress").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresStore(mock)
	p := Progress{
		OperationID: "op-1",
		Status:      StatusInitializing,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.Upsert(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScansRow(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"operation_id", "start_date", "end_date", "status",
		"total_dates_discovered", "dates_processed", "documents_succeeded", "documents_failed",
		"estimated_total_documents", "processing_rate_docs_per_minute", "estimated_completion_time_ms",
		"created_at", "started_at", "paused_at", "completed_at", "discovery_time_ms", "download_time_ms",
		"pause_requested", "cancel_requested",
		"rate_limit_ms", "max_concurrent_downloads", "force_update",
		"current_phase", "current_processing_date", "retry_count",
		"processed_dates", "failed_dates", "error_message",
	}).AddRow(
		"op-1", now, now, "CRAWLING",
		5, 2, 10, 1,
		20, 1.5, int64(0),
		now, now, now, now, int64(0), int64(0),
		false, false,
		250, 2, false,
		"crawling", now, 0,
		[]byte(`["2025-01-01T00:00:00Z"]`), []byte(`[]`), "",
	)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	store := NewPostgresStore(mock)
	p, err := store.Get(context.Background(), "op-1")
	require.NoError(t, err)
	require.Equal(t, "op-1", p.OperationID)
	require.Equal(t, StatusCrawling, p.Status)
	require.Len(t, p.ProcessedDates, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteNotFoundWhenZeroRowsAffected(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM bulk_crawl_progress").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewPostgresStore(mock)
	err = store.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
