package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSearchStore(t *testing.T) *SearchStore {
	t.Helper()
	s, err := NewSearchStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSearchStore_UpsertThenFindByDocumentID(t *testing.T) {
	t.Parallel()
	s := newTestSearchStore(t)
	ctx := context.Background()

	doc := LegalDocument{
		DocumentID:   "KARE500041892",
		Court:        "BAG",
		ECLI:         "ECLI:DE:BAG:2024:1",
		Title:        "Kündigung eines Arbeitsverhältnisses",
		Status:       StatusProcessed,
		DecisionDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		CrawledAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Upsert(ctx, doc))

	got, ok, err := s.FindByDocumentID(ctx, doc.DocumentID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "BAG", got.Court)
	require.Equal(t, doc.Title, got.Title)
}

func TestSearchStore_SearchText_GermanAnalyzerMatchesStem(t *testing.T) {
	t.Parallel()
	s := newTestSearchStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, LegalDocument{
		DocumentID: "d1",
		Title:      "Kündigungsschutzklage",
		FullText:   "Die Kündigung des Arbeitsverhältnisses war rechtswidrig.",
	}))

	results, err := s.SearchText(ctx, "kündigung", Page{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestSearchStore_FindByCourt(t *testing.T) {
	t.Parallel()
	s := newTestSearchStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "a", Court: "BGH"}))
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "b", Court: "BAG"}))

	results, err := s.FindByCourt(ctx, "BGH", Page{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].DocumentID)
}

func TestSearchStore_FindByStatus_MatchesStoredUppercaseValue(t *testing.T) {
	t.Parallel()
	s := newTestSearchStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "a", Status: StatusPending}))
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "b", Status: StatusFailed}))

	results, err := s.FindByStatus(ctx, StatusPending, Page{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].DocumentID)

	count, err := s.CountByStatus(ctx, StatusPending)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestSearchStore_CountByCourt_MatchesStoredUppercaseValue(t *testing.T) {
	t.Parallel()
	s := newTestSearchStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "a", Court: "BVERFG"}))
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "b", Court: "BVERFG"}))

	count, err := s.CountByCourt(ctx, "BVERFG")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestSearchStore_FindByECLI_MatchesStoredValue(t *testing.T) {
	t.Parallel()
	s := newTestSearchStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "a", ECLI: "ECLI:DE:BGH:2024:1"}))

	got, ok, err := s.FindByECLI(ctx, "ECLI:DE:BGH:2024:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", got.DocumentID)
}

func TestSearchStore_ExistsBySourceURL(t *testing.T) {
	t.Parallel()
	s := newTestSearchStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "a", SourceURL: "https://example.test/doc?docid=a"}))

	ok, err := s.ExistsBySourceURL(ctx, "https://example.test/doc?docid=a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ExistsBySourceURL(ctx, "https://example.test/doc?docid=missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSearchStore_DeleteRemovesFromIndex(t *testing.T) {
	t.Parallel()
	s := newTestSearchStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, LegalDocument{DocumentID: "a"}))
	require.NoError(t, s.Delete(ctx, "a"))

	_, ok, err := s.FindByDocumentID(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDualStore_UpsertWritesArchiveBeforeIndex(t *testing.T) {
	t.Parallel()
	archive := NewArchiveStore(t.TempDir())
	search := newTestSearchStore(t)
	dual := NewDualStore(archive, search)
	ctx := context.Background()

	doc := LegalDocument{DocumentID: "d1", Court: "BGH", Status: StatusProcessed}
	require.NoError(t, dual.Upsert(ctx, doc))

	_, ok, err := archive.FindByDocumentID(ctx, "d1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = search.FindByDocumentID(ctx, "d1")
	require.NoError(t, err)
	require.True(t, ok)
}
